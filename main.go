package main

import "pdfqa/cmd"

func main() {
	cmd.Execute()
}
