package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("wrapped: %w", Signature("invalid signature"))

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: Validation("bad"), want: KindValidation},
		{name: "signature_wrapped", err: wrapped, want: KindSignature},
		{name: "upstream", err: Upstream("provider down", errors.New("eof")), want: KindUpstream},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "canceled", err: context.Canceled, want: KindCanceled},
		{name: "unknown", err: errors.New("unknown"), want: KindInternal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "validation", err: Validation("bad"), want: http.StatusBadRequest},
		{name: "configuration", err: Configuration("missing keys"), want: http.StatusInternalServerError},
		{name: "signature", err: Signature("invalid"), want: http.StatusBadRequest},
		{name: "upstream", err: Upstream("down", nil), want: http.StatusBadGateway},
		{name: "upstream_deadline", err: Upstream("down", context.DeadlineExceeded), want: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "unknown", err: errors.New("unknown"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("ctx: %w", Validation("Ціна має бути додатним числом"))
	if got := Message(err, "fallback"); got != "Ціна має бути додатним числом" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(errors.New("raw"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := Upstream("provider unavailable", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "provider unavailable: connection reset" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	long := make([]byte, 0, 400)
	for i := 0; i < 200; i++ {
		long = append(long, []byte("ї")...)
	}
	if got := []rune(Snippet(long)); len(got) != SnippetLimit {
		t.Fatalf("expected %d runes, got %d", SnippetLimit, len(got))
	}
	if got := Snippet([]byte("<html>")); got != "<html>" {
		t.Fatalf("unexpected snippet %q", got)
	}
}
