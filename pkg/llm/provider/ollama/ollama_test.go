package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/devcoach/pkg/llm"
	"github.com/papercomputeco/devcoach/pkg/llm/provider/ollama"
)

func line(content string, done bool) string {
	return fmt.Sprintf(`{"model":"llama3.2","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":%q},"done":%t}`+"\n", content, done)
}

var _ = Describe("Ollama Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		path     string
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		received = nil
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = io.WriteString(w, line("Hel", false))
			_, _ = io.WriteString(w, "\n")
			_, _ = io.WriteString(w, line("lo", false))
			_, _ = io.WriteString(w, line("!", false))
			_, _ = io.WriteString(w, line("", true))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &received)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	request := &llm.ChatRequest{
		Model:  "llama3.2",
		Stream: true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "coach"},
			{Role: llm.RoleUser, Content: "Hi"},
		},
	}

	It("returns 'ollama' as its name", func() {
		Expect(ollama.New("").Name()).To(Equal("ollama"))
	})

	It("streams message content line by line", func() {
		s, err := ollama.New(server.URL+"/").StreamChat(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		var deltas []string
		for s.Next() {
			deltas = append(deltas, s.Current().Content)
		}
		Expect(s.Err()).NotTo(HaveOccurred())
		Expect(deltas).To(Equal([]string{"Hel", "lo", "!", ""}))
		Expect(path).To(Equal("/api/chat"))
	})

	It("sends the system prompt inline with stream enabled", func() {
		s, err := ollama.New(server.URL).StreamChat(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		for s.Next() {
		}
		Expect(s.Close()).To(Succeed())

		Expect(received["model"]).To(Equal("llama3.2"))
		Expect(received["stream"]).To(BeTrue())
		msgs, ok := received["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(msgs[0]).To(HaveKeyWithValue("role", "system"))
	})

	It("returns an error before streaming on a non-2xx status", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"model \"llama3.2\" not found"}`)
		}

		_, err := ollama.New(server.URL).StreamChat(context.Background(), request)
		Expect(err).To(MatchError(ContainSubstring("status 404")))
	})

	It("reports an error line mid-stream", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, line("Hel", false))
			_, _ = io.WriteString(w, `{"error":"out of memory"}`+"\n")
		}

		s, err := ollama.New(server.URL).StreamChat(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		Expect(s.Next()).To(BeTrue())
		Expect(s.Current().Content).To(Equal("Hel"))
		Expect(s.Next()).To(BeFalse())
		Expect(s.Err()).To(MatchError(ContainSubstring("out of memory")))
	})

	It("treats a body that ends without a done chunk as an error", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, line("Hel", false))
		}

		s, err := ollama.New(server.URL).StreamChat(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		Expect(s.Next()).To(BeTrue())
		Expect(s.Next()).To(BeFalse())
		Expect(s.Err()).To(MatchError(ContainSubstring("unexpected EOF")))
	})

	It("returns an error when the server is unreachable", func() {
		server.Close()
		_, err := ollama.New(server.URL).StreamChat(context.Background(), request)
		Expect(err).To(MatchError(ContainSubstring("ollama API error")))
	})
})
