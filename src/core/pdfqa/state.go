package pdfqa

// IngestState names the steps of document ingestion.
type IngestState string

const (
	IngestUploaded  IngestState = "UPLOADED"
	IngestHashed    IngestState = "HASHED"
	IngestSkipped   IngestState = "SKIP_INGEST"
	IngestExtracted IngestState = "EXTRACTED"
	IngestChunked   IngestState = "CHUNKED"
	IngestEmbedded  IngestState = "EMBEDDED"
	IngestStored    IngestState = "STORED"
	IngestReady     IngestState = "READY"
)

// QuestionState names the steps of answering a question.
type QuestionState string

const (
	QuestionReceived      QuestionState = "RECEIVED"
	QuestionEmbeddedQuery QuestionState = "EMBEDDED_QUERY"
	QuestionRetrieved     QuestionState = "RETRIEVED"
	QuestionNoAnswer      QuestionState = "NO_ANSWER"
	QuestionComposed      QuestionState = "COMPOSED"
	QuestionAnswered      QuestionState = "ANSWERED"
)
