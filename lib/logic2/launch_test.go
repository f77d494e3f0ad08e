package logic2

import (
	"testing"
	"time"
)

func TestConnectWithRetryConnects(t *testing.T) {
	stub := newStubEndpoint(t, ackAll)

	policy := RetryPolicy{Attempts: 1}
	client, err := ConnectWithRetry("127.0.0.1", stub.port(), time.Second, policy)
	if err != nil {
		t.Fatalf("ConnectWithRetry failed: %v", err)
	}
	defer client.Close()
}

func TestConnectWithRetryExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{Attempts: 2, Delay: time.Millisecond}

	start := time.Now()
	_, err := ConnectWithRetry("127.0.0.1", 1, 50*time.Millisecond, policy)
	if err == nil {
		t.Fatal("expected an error when the endpoint never answers")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("retries took far longer than the configured policy")
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.Attempts != 3 || policy.Delay != 2*time.Second || !policy.Launch {
		t.Fatalf("unexpected default policy: %+v", policy)
	}
}

func TestDefaultInstallPathsNonEmpty(t *testing.T) {
	if len(DefaultInstallPaths()) == 0 {
		t.Fatal("expected at least one install path per platform")
	}
}
