package validation

import (
	"errors"
	"strings"
	"testing"
)

type sampleRequest struct {
	Value  int    `json:"value" validate:"min=1,max=5"`
	Status string `json:"status" validate:"omitempty,oneof=ongoing completed upcoming"`
	Text   string `json:"text" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        sampleRequest
		wantFields []string
	}{
		{name: "valid", req: sampleRequest{Value: 3, Text: "hi"}},
		{name: "value too high", req: sampleRequest{Value: 6, Text: "hi"}, wantFields: []string{"value"}},
		{name: "bad status and missing text", req: sampleRequest{Value: 1, Status: "airing"}, wantFields: []string{"status", "text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *RequestValidationError, got %T (%v)", err, err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("got %d field errors (%v), want %d", len(verr.Fields), verr.Fields, len(tt.wantFields))
			}
			for i, f := range tt.wantFields {
				if verr.Fields[i].Field != f {
					t.Errorf("field[%d] = %q, want %q", i, verr.Fields[i].Field, f)
				}
			}
		})
	}
}

func TestRequestValidationError_Message(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&sampleRequest{Value: 0, Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "value must be at least 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
