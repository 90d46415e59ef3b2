package service

import (
	"errors"
	"testing"
)

func TestInvalidInputError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *InvalidInputError
		want string
	}{
		{
			name: "url",
			err: &InvalidInputError{
				Field:   "url",
				Value:   "not-a-url",
				Message: "scheme must be http or https",
			},
			want: `invalid url "not-a-url": scheme must be http or https`,
		},
		{
			name: "empty value",
			err: &InvalidInputError{
				Field:   "url",
				Message: "must not be empty",
			},
			want: `invalid url "": must not be empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("InvalidInputError.Error() = %v, want %v", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("InvalidInputError should match ErrInvalidInput")
			}
		})
	}
}

func TestFetchError(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name    string
		err     *FetchError
		wantMsg string
	}{
		{
			name:    "network failure",
			err:     &FetchError{URL: "https://example.com", Err: cause},
			wantMsg: "fetch https://example.com: connection refused",
		},
		{
			name:    "bad status",
			err:     &FetchError{URL: "https://example.com", StatusCode: 403, Err: errors.New("forbidden")},
			wantMsg: "fetch https://example.com: status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("FetchError.Error() = %v, want %v", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrFetch) {
				t.Error("FetchError should match ErrFetch")
			}
		})
	}

	wrapped := WrapError(&FetchError{URL: "https://example.com", Err: cause}, "ingest")
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped FetchError should expose its cause")
	}
	var fe *FetchError
	if !errors.As(wrapped, &fe) || fe.URL != "https://example.com" {
		t.Errorf("errors.As() did not recover FetchError, got %+v", fe)
	}
}

func TestStoreCorruptError(t *testing.T) {
	err := &StoreCorruptError{Path: "chunks.json", Err: errors.New("unexpected EOF")}
	if !errors.Is(err, ErrStoreCorrupt) {
		t.Error("StoreCorruptError should match ErrStoreCorrupt")
	}
	if errors.Is(err, ErrStoreMissing) {
		t.Error("StoreCorruptError should not match ErrStoreMissing")
	}
}

func TestGenerationServiceError(t *testing.T) {
	cause := errors.New("bad status 429: quota exceeded")
	err := &GenerationServiceError{Model: "gemini-1.5-flash", Err: cause}
	if !errors.Is(err, ErrGeneration) {
		t.Error("GenerationServiceError should match ErrGeneration")
	}
	if !errors.Is(err, cause) {
		t.Error("GenerationServiceError should unwrap to its cause")
	}
	want := "generation with gemini-1.5-flash failed: bad status 429: quota exceeded"
	if err.Error() != want {
		t.Errorf("GenerationServiceError.Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		msg     string
		wantNil bool
		wantMsg string
	}{
		{
			name:    "nil error",
			err:     nil,
			msg:     "context",
			wantNil: true,
		},
		{
			name:    "wrapped error",
			err:     errors.New("original error"),
			msg:     "context",
			wantMsg: "context: original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, tt.msg)
			if tt.wantNil {
				if got != nil {
					t.Errorf("WrapError() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("WrapError() = nil, want error")
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("WrapError() = %v, want %v", got.Error(), tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("WrapError() should wrap original error")
			}
		})
	}
}
