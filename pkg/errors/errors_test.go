package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	t.Run("creates error with all defaults", func(t *testing.T) {
		err := NewError(ErrCodeInvalidConfig, "configuration is invalid")
		if err == nil {
			t.Fatal("NewError returned nil")
		}
		if err.Code != ErrCodeInvalidConfig {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidConfig)
		}
		if err.Message != "configuration is invalid" {
			t.Errorf("Message = %q, want %q", err.Message, "configuration is invalid")
		}
		if err.Category != CategoryConfiguration {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfiguration)
		}
		if err.Details == nil {
			t.Error("Details map is nil")
		}
		if err.Context == nil {
			t.Error("Context map is nil")
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeInvalidConfig, CategoryConfiguration},
		{ErrCodeConfigLoad, CategoryConfiguration},
		{ErrCodeUsage, CategoryConfiguration},
		{ErrCodeMountFailed, CategoryFilesystem},
		{ErrCodeHostCall, CategoryFilesystem},
		{ErrCodeBadHandle, CategoryFilesystem},
		{ErrCodePathTooLong, CategoryFilesystem},
		{ErrCodeOutOfMemory, CategoryResource},
		{ErrCodeLogOpen, CategoryResource},
		{ErrCodeInternalError, CategoryInternal},
	}

	for _, tt := range tests {
		if got := GetCategory(tt.code); got != tt.want {
			t.Errorf("GetCategory(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestFromErrno(t *testing.T) {
	t.Parallel()

	err := FromErrno("mknod", "/data/a.txt", syscall.EEXIST)

	if err.Code != ErrCodeHostCall {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeHostCall)
	}
	if err.Errno != syscall.EEXIST {
		t.Errorf("Errno = %v, want EEXIST", err.Errno)
	}
	if !errors.Is(err, syscall.EEXIST) {
		t.Error("errors.Is(err, EEXIST) = false, want true")
	}
	if !strings.Contains(err.Error(), "mknod /data/a.txt") {
		t.Errorf("Error() = %q, want operation and path", err.Error())
	}

	if got := FromErrno("read", "", syscall.EBADF).Code; got != ErrCodeBadHandle {
		t.Errorf("EBADF code = %s, want %s", got, ErrCodeBadHandle)
	}
	if got := FromErrno("readdir", "", syscall.ENOMEM).Code; got != ErrCodeOutOfMemory {
		t.Errorf("ENOMEM code = %s, want %s", got, ErrCodeOutOfMemory)
	}
	if got := FromErrno("getattr", "", syscall.ENAMETOOLONG).Code; got != ErrCodePathTooLong {
		t.Errorf("ENAMETOOLONG code = %s, want %s", got, ErrCodePathTooLong)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, 0},
		{"bare errno", syscall.ENOENT, -int(syscall.ENOENT)},
		{"structured errno", FromErrno("open", "/x", syscall.EACCES), -int(syscall.EACCES)},
		{"wrapped structured errno", fmt.Errorf("outer: %w", FromErrno("open", "/x", syscall.EPERM)), -int(syscall.EPERM)},
		{"no errno maps to EIO", errors.New("boom"), -int(syscall.EIO)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestToErrno(t *testing.T) {
	t.Parallel()

	if got := ToErrno(nil); got != 0 {
		t.Errorf("ToErrno(nil) = %v, want 0", got)
	}
	if got := ToErrno(FromErrno("rmdir", "/d", syscall.ENOTEMPTY)); got != syscall.ENOTEMPTY {
		t.Errorf("ToErrno() = %v, want ENOTEMPTY", got)
	}
	if got := ToErrno(errors.New("plain")); got != syscall.EIO {
		t.Errorf("ToErrno(plain) = %v, want EIO", got)
	}
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	t.Run("Wrap records errno of cause", func(t *testing.T) {
		err := Wrap(ErrCodeMountFailed, "mount failed", syscall.EPERM)
		if err.Errno != syscall.EPERM {
			t.Errorf("Errno = %v, want EPERM", err.Errno)
		}
		if !errors.Is(err, syscall.EPERM) {
			t.Error("errors.Is(err, EPERM) = false")
		}
	})

	t.Run("Is compares codes", func(t *testing.T) {
		err := NewError(ErrCodeLogOpen, "cannot open")
		if !errors.Is(err, NewError(ErrCodeLogOpen, "other message")) {
			t.Error("errors with same code should match")
		}
		if errors.Is(err, NewError(ErrCodeUsage, "cannot open")) {
			t.Error("errors with different codes should not match")
		}
	})
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeInvalidConfig, "bad").
		WithComponent("config").
		WithOperation("validate").
		WithContext("file", "blokfs.yaml").
		WithDetail("field", "mount.root")

	if err.Component != "config" || err.Operation != "validate" {
		t.Errorf("builders not applied: %+v", err)
	}
	if err.Context["file"] != "blokfs.yaml" {
		t.Errorf("Context[file] = %q", err.Context["file"])
	}

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.JSON()), &decoded); jerr != nil {
		t.Fatalf("JSON() produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != string(ErrCodeInvalidConfig) {
		t.Errorf("decoded code = %v", decoded["code"])
	}

	s := err.String()
	for _, want := range []string{"Code=INVALID_CONFIG", "Component=config", "Operation=validate"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}

	if err.GetRecommendation() == "" {
		t.Error("GetRecommendation() returned empty string")
	}
}
