package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestFail_ClassifiesKind(t *testing.T) {
	cases := []struct {
		name  string
		stage string
		err   error
		want  Kind
	}{
		{"not_found", StageSearch, ErrNotFound, KindNotFound},
		{"disabled", StageEnrich, ErrDisabled, KindDisabled},
		{"malformed", StageEnrich, fmt.Errorf("%w: bad json", ErrMalformed), KindParse},
		{"status", StageFetch, &HTTPStatusError{URL: "u", StatusCode: 503}, KindHTTPStatus},
		{"blocked", StageSearch, &BlockedError{Reason: "captcha"}, KindBlocked},
		{"deadline", StageFetch, context.DeadlineExceeded, KindTimeout},
		{"client_timeout", StageFetch, &url.Error{Op: "Get", URL: "u", Err: timeoutErr{}}, KindTimeout},
		{"parse_stage", StageParse, errors.New("html 为空"), KindParse},
		{"network", StageFetch, errors.New("connection refused"), KindNetwork},
	}
	for _, tc := range cases {
		err := Fail("lddb", tc.stage, tc.err)
		if got := KindOf(err); got != tc.want {
			t.Fatalf("%s：期望 kind=%s，实际=%s（err=%v）", tc.name, tc.want, got, err)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%s：包装后应能 errors.Is 原错误", tc.name)
		}
	}
}

func TestFail_DoesNotDoubleWrap(t *testing.T) {
	inner := Fail("google", StageSearch, ErrNotFound)
	outer := Fail("lookup", StageFetch, inner)

	var pe *Error
	if !errors.As(outer, &pe) {
		t.Fatalf("期望 *Error，实际 %T", outer)
	}
	if pe.Provider != "google" || pe.Stage != StageSearch {
		t.Fatalf("不应重复包装：%+v", pe)
	}
	if Fail("x", StageFetch, nil) != nil {
		t.Fatalf("nil 输入应返回 nil")
	}
}
