package retrieval

import "fmt"

type QdrantErrorCode string

const (
	QdrantErrorValidation      QdrantErrorCode = "validation_failed"
	QdrantErrorEncodeFailed    QdrantErrorCode = "encode_failed"
	QdrantErrorDecodeFailed    QdrantErrorCode = "decode_failed"
	QdrantErrorTransportFailed QdrantErrorCode = "transport_failed"
	QdrantErrorTimeout         QdrantErrorCode = "timeout"
	QdrantErrorQueryFailed     QdrantErrorCode = "query_failed"
)

// QdrantError describes a failed call against the Qdrant HTTP API.
type QdrantError struct {
	Code       QdrantErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *QdrantError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	if e.Message != "" {
		return fmt.Sprintf("qdrant operation failed (op=%s code=%s status=%d): %s",
			e.Operation, e.Code, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("qdrant operation failed (op=%s code=%s status=%d): %v",
			e.Operation, e.Code, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("qdrant operation failed (op=%s code=%s status=%d)", e.Operation, e.Code, e.StatusCode)
}

func (e *QdrantError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func qdrantErr(op string, code QdrantErrorCode, msg string, cause error) error {
	return &QdrantError{Code: code, Operation: op, Message: msg, Cause: cause}
}
