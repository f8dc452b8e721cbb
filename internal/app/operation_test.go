package app

import (
	"errors"
	"testing"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{name: "with parameters", operation: "Apply", parameters: "plan=p1"},
		{name: "empty parameters", operation: "ClearHistory", parameters: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters)

			if op.Operation != tt.operation || op.Parameters != tt.parameters {
				t.Errorf("op = %+v", op)
			}
			if op.Status != StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
			}
			if op.Persisted() {
				t.Error("new operation reports persisted")
			}
		})
	}
}

func TestOperation_Status(t *testing.T) {
	tests := []struct {
		name    string
		partial bool
		err     error
		want    string
	}{
		{name: "clean run stays success", want: StatusSuccess},
		{name: "failures make it partial", partial: true, want: StatusPartial},
		{name: "an error wins over partial", partial: true, err: errors.New("boom"), want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("Apply", "")
			op.Record(tt.err)
			if tt.partial {
				op.MarkPartial()
			}
			if op.Status != tt.want {
				t.Errorf("Status = %q, want %q", op.Status, tt.want)
			}
		})
	}
}
