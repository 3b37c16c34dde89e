package printer

import "encoding/json"

const (
	callCertificate  = "security.certificate"
	callSignature    = "security.signature"
	callFindPrinter  = "printers.find"
	callListPrinters = "printers.list"
	callPrint        = "print"
)

type request struct {
	UID       string `json:"uid"`
	Call      string `json:"call"`
	Params    any    `json:"params,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type reply struct {
	UID    string          `json:"uid"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type certificateParams struct {
	Certificate string `json:"certificate"`
}

type challengeResult struct {
	Challenge string `json:"challenge"`
}

type signatureParams struct {
	Challenge string `json:"challenge"`
	Signature string `json:"signature"`
}

type findParams struct {
	Query string `json:"query"`
}

type printParams struct {
	Printer string     `json:"printer"`
	Data    []printJob `json:"data"`
}

type printJob struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	Data   string `json:"data"`
}
