package redis

import (
	"testing"

	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

func TestNewConfigBusRequiresAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	if _, err := NewConfigBus(logger.Nop()); err == nil {
		t.Fatalf("NewConfigBus: want error without REDIS_ADDR")
	}
}

func TestDecodeInvalidation(t *testing.T) {
	cases := []struct {
		payload string
		want    Invalidation
		wantErr bool
	}{
		{`{"key":"IGNORE_INTERVAL"}`, Invalidation{Key: "IGNORE_INTERVAL"}, false},
		{`{"all":true,"origin":"a"}`, Invalidation{All: true, Origin: "a"}, false},
		{`{}`, Invalidation{}, true},
		{`not json`, Invalidation{}, true},
	}
	for _, tc := range cases {
		got, err := decodeInvalidation(tc.payload)
		if (err != nil) != tc.wantErr {
			t.Fatalf("decodeInvalidation(%s): wantErr=%v got=%v", tc.payload, tc.wantErr, err)
		}
		if got != tc.want {
			t.Fatalf("decodeInvalidation(%s): want=%+v got=%+v", tc.payload, tc.want, got)
		}
	}
}
