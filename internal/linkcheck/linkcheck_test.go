package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, status int, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckRecognizesDeletionPage(t *testing.T) {
	url := serve(t, http.StatusOK, `<html>
		<head><title>Delete your account - Acme</title></head>
		<body>
			<h1>Account deletion</h1>
			<p>Use the form below to submit a data deletion request.</p>
			<form action="/delete" method="post"><button>Delete</button></form>
		</body>
	</html>`)

	verdict, err := NewChecker().Check(context.Background(), url)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if !verdict.Reachable {
		t.Error("page should be reachable")
	}
	if verdict.Title != "Delete your account - Acme" {
		t.Errorf("title = %q", verdict.Title)
	}
	if verdict.Score < 10 {
		t.Errorf("score = %d, want >= 10 for a clear deletion page", verdict.Score)
	}
}

func TestCheckScoresGenericPageLow(t *testing.T) {
	url := serve(t, http.StatusOK, `<html>
		<head><title>Acme - Streaming for everyone</title></head>
		<body><h1>Watch now</h1><p>Sign up for the best shows.</p></body>
	</html>`)

	verdict, err := NewChecker().Check(context.Background(), url)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if verdict.Score != 0 {
		t.Errorf("score = %d, want 0 for a marketing page", verdict.Score)
	}
}

func TestCheckDeadPageScoresZero(t *testing.T) {
	url := serve(t, http.StatusOK, `<html>
		<head><title>Page not found</title></head>
		<body><h1>404</h1><p>delete deletion privacy rights opt out</p></body>
	</html>`)

	verdict, err := NewChecker().Check(context.Background(), url)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if verdict.Score != 0 {
		t.Errorf("score = %d, want 0 when the page is a 404 shell", verdict.Score)
	}
}

func TestCheckUnreachablePage(t *testing.T) {
	url := serve(t, http.StatusForbidden, "")

	verdict, err := NewChecker().Check(context.Background(), url)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if verdict.Reachable {
		t.Error("403 must not count as reachable")
	}
	if verdict.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", verdict.StatusCode)
	}
}

func TestCheckNetworkFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if _, err := NewChecker().Check(context.Background(), srv.URL); err == nil {
		t.Error("Check() should fail when the host is gone")
	}
}
