package tools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/researchfleet/deepagent/internal/sandbox"
	"github.com/researchfleet/deepagent/internal/store"
)

type fakeSandboxService struct {
	mux       *http.ServeMux
	execCalls []string
	deleted   bool
	bootFails bool
	outputs   map[string][]byte
}

func newFakeSandboxService() *fakeSandboxService {
	f := &fakeSandboxService{mux: http.NewServeMux(), outputs: map[string][]byte{}}
	f.mux.HandleFunc("POST /sandboxes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sandbox.Sandbox{ID: "sb-test"})
	})
	f.mux.HandleFunc("POST /sandboxes/sb-test/exec", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		f.execCalls = append(f.execCalls, req["code"])
		if f.bootFails && len(f.execCalls) == 1 {
			json.NewEncoder(w).Encode(sandbox.ExecResult{ExitCode: 1, Output: "ImportError"})
			return
		}
		json.NewEncoder(w).Encode(sandbox.ExecResult{ExitCode: 0, Output: "done\n"})
	})
	f.mux.HandleFunc("GET /sandboxes/sb-test/files", func(w http.ResponseWriter, r *http.Request) {
		var files []sandbox.FileInfo
		for name := range f.outputs {
			files = append(files, sandbox.FileInfo{Name: name, Size: int64(len(f.outputs[name]))})
		}
		json.NewEncoder(w).Encode(files)
	})
	f.mux.HandleFunc("GET /sandboxes/sb-test/files/download", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		name := path[strings.LastIndex(path, "/")+1:]
		w.Write(f.outputs[name])
	})
	f.mux.HandleFunc("GET /sandboxes/sb-test/files/link", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		name := path[strings.LastIndex(path, "/")+1:]
		json.NewEncoder(w).Encode(map[string]string{"url": "https://files.example/" + name})
	})
	f.mux.HandleFunc("DELETE /sandboxes/sb-test", func(w http.ResponseWriter, r *http.Request) {
		f.deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	return f
}

func newSandboxClient(t *testing.T, f *fakeSandboxService) *sandbox.Client {
	t.Helper()
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	t.Setenv("SANDBOX_API_KEY", "k")
	c, err := sandbox.New(sandbox.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestExecutePythonCollectsArtifacts(t *testing.T) {
	ctx := context.Background()
	f := newFakeSandboxService()
	f.outputs["chart.png"] = []byte{1, 2, 3}
	st := store.NewMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	execTool := NewExecutePythonTool(newSandboxClient(t, f), st, log)
	out, err := execTool.Function(ctx, ExecutePythonInput{Code: "plt.savefig('chart.png')"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if out.Output != "done\n" || out.ExitCode != 0 {
		t.Errorf("result = %+v", out)
	}
	if len(f.execCalls) != 2 {
		t.Fatalf("expected bootstrap + user code, got %d exec calls", len(f.execCalls))
	}
	if !strings.Contains(f.execCalls[0], "matplotlib.use(\"Agg\")") {
		t.Error("bootstrap missing headless matplotlib setup")
	}
	if f.execCalls[1] != "plt.savefig('chart.png')" {
		t.Errorf("user code = %q", f.execCalls[1])
	}

	if len(out.Files) != 1 {
		t.Fatalf("files = %+v", out.Files)
	}
	if out.Files[0].Path != OutputsPrefix+"chart.png" || out.Files[0].URL != "https://files.example/chart.png" {
		t.Errorf("file = %+v", out.Files[0])
	}
	if rec, ok, _ := st.Get(ctx, OutputsPrefix+"chart.png"); !ok || len(rec.Content) != 3 {
		t.Error("artifact not stored in run filesystem")
	}
	if !f.deleted {
		t.Error("sandbox not deleted after run")
	}
}

func TestExecutePythonTearsDownOnBootstrapFailure(t *testing.T) {
	f := newFakeSandboxService()
	f.bootFails = true
	st := store.NewMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	execTool := NewExecutePythonTool(newSandboxClient(t, f), st, log)
	_, err := execTool.Function(context.Background(), ExecutePythonInput{Code: "print(1)"})
	if err == nil || !strings.Contains(err.Error(), "bootstrap") {
		t.Fatalf("err = %v, want bootstrap failure", err)
	}
	if !f.deleted {
		t.Error("sandbox leaked after bootstrap failure")
	}
}
