package transport

import "encoding/json"

// Envelope wraps every JSON answer of the shop API. Error is always a
// user-readable message.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// ListMeta describes a product list answer.
type ListMeta struct {
	Count  int         `json:"count"`
	Filter interface{} `json:"filter,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewList wraps a list with its count and the filter that produced it.
func NewList(data interface{}, count int, filter interface{}) Envelope {
	return NewSuccess(data, ListMeta{Count: count, Filter: filter})
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String renders the envelope for log fields.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
