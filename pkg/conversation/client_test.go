package conversation_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/devcoach/pkg/conversation"
	"github.com/papercomputeco/devcoach/pkg/llm"
	"github.com/papercomputeco/devcoach/pkg/logger"
	testutils "github.com/papercomputeco/devcoach/pkg/utils/test"
	"github.com/papercomputeco/devcoach/relay"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		requests atomic.Int32
		received []llm.Message
		conv     *conversation.Conversation
		client   *conversation.Client
		ctx      context.Context
	)

	BeforeEach(func() {
		requests.Store(0)
		received = nil
		ctx = context.Background()
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "Hello!")
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if r.URL.Path == "/api/chat" && r.Method == http.MethodPost {
				_ = json.NewDecoder(r.Body).Decode(&received)
			}
			handler(w, r)
		}))
		conv = conversation.New()
		client = conversation.NewClient(server.URL+"/", conversation.WithLogger(logger.Nop()))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the history without the placeholder and streams the reply into it", func() {
		conv = conversation.New(conversation.WithGreeting("Hi, I'm your coach."))
		conv.SetInput("hi")

		Expect(client.Send(ctx, conv)).To(Succeed())

		Expect(received).To(Equal([]llm.Message{
			{Role: llm.RoleAssistant, Content: "Hi, I'm your coach."},
			{Role: llm.RoleUser, Content: "hi"},
		}))
		msgs := conv.Messages()
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[2]).To(Equal(llm.Message{Role: llm.RoleAssistant, Content: "Hello!"}))
		Expect(conv.State()).To(Equal(conversation.Idle))
	})

	It("returns ErrEmptyInput for blank input without a request", func() {
		conv.SetInput("  ")
		Expect(client.Send(ctx, conv)).To(MatchError(conversation.ErrEmptyInput))
		Expect(requests.Load()).To(BeZero())
	})

	It("decodes code points split across chunks", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			f := w.(http.Flusher)
			for _, part := range [][]byte{{'c', 'a', 'f', 0xc3}, {0xa9, ' ', 0xf0, 0x9f}, {0x8e, 0x89}} {
				_, _ = w.Write(part)
				f.Flush()
			}
		}
		conv.SetInput("hi")

		Expect(client.Send(ctx, conv)).To(Succeed())
		Expect(conv.Messages()[1].Content).To(Equal("café 🎉"))
	})

	Context("when the relay answers with a non-success status", func() {
		BeforeEach(func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, `{"error":"upstream request failed"}`)
			}
		})

		It("adds exactly one assistant message holding the error text and settles", func() {
			conv.SetInput("hi")
			Expect(client.Send(ctx, conv)).To(Succeed())

			Expect(conv.Messages()).To(Equal([]llm.Message{
				{Role: llm.RoleUser, Content: "hi"},
				{Role: llm.RoleAssistant, Content: conversation.ErrorMessage},
			}))
			Expect(conv.Busy()).To(BeFalse())
			Expect(requests.Load()).To(Equal(int32(1)))
		})
	})

	Describe("Ping", func() {
		It("fails on a non-200 answer", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			Expect(client.Ping(ctx)).To(MatchError(ContainSubstring("status 503")))
		})

		It("fails when the relay is unreachable", func() {
			server.Close()
			Expect(client.Ping(ctx)).To(MatchError(ContainSubstring("reaching relay")))
		})
	})

	It("writes the error text when the relay is unreachable", func() {
		server.Close()
		conv.SetInput("hi")

		Expect(client.Send(ctx, conv)).To(Succeed())
		Expect(conv.Messages()[1].Content).To(Equal(conversation.ErrorMessage))
		Expect(conv.Busy()).To(BeFalse())
	})

	Context("when the stream is cut off", func() {
		abort := func(chunk string) http.HandlerFunc {
			return func(w http.ResponseWriter, _ *http.Request) {
				conn, buf, err := w.(http.Hijacker).Hijack()
				if err != nil {
					return
				}
				defer conn.Close()
				_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n")
				if chunk != "" {
					_, _ = buf.WriteString(chunk)
				}
				_ = buf.Flush()
			}
		}

		It("keeps the partial answer", func() {
			handler = abort("5\r\nHello\r\n")
			conv.SetInput("hi")

			Expect(client.Send(ctx, conv)).To(Succeed())
			Expect(conv.Messages()[1].Content).To(Equal("Hello"))
			Expect(conv.Busy()).To(BeFalse())
		})

		It("writes the error text when nothing arrived", func() {
			handler = abort("")
			conv.SetInput("hi")

			Expect(client.Send(ctx, conv)).To(Succeed())
			Expect(conv.Messages()[1].Content).To(Equal(conversation.ErrorMessage))
		})
	})

	Context("while a send is in flight", func() {
		var release chan struct{}

		BeforeEach(func() {
			release = make(chan struct{})
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "Hel")
				w.(http.Flusher).Flush()
				<-release
				_, _ = io.WriteString(w, "lo!")
			}
		})

		sendInBackground := func() chan error {
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- client.Send(ctx, conv)
			}()
			Eventually(func() string {
				msgs := conv.Messages()
				if len(msgs) < 2 {
					return ""
				}
				return msgs[len(msgs)-1].Content
			}).Should(Equal("Hel"))
			return done
		}

		It("treats another send as a no-op", func() {
			conv.SetInput("first")
			done := sendInBackground()

			Expect(conv.State()).To(Equal(conversation.Streaming))
			conv.SetInput("second")
			Expect(client.Send(ctx, conv)).To(MatchError(conversation.ErrBusy))
			Expect(conv.Messages()).To(HaveLen(2))

			close(release)
			Eventually(done).Should(Receive(BeNil()))
			Expect(requests.Load()).To(Equal(int32(1)))
			Expect(conv.Messages()[1].Content).To(Equal("Hello!"))
		})

		It("drops the rest of the stream after a clear", func() {
			conv.SetInput("first")
			done := sendInBackground()

			conv.Clear()
			Expect(conv.Messages()).To(BeEmpty())
			Expect(conv.Busy()).To(BeTrue())

			close(release)
			Eventually(done).Should(Receive(BeNil()))
			Expect(conv.Messages()).To(BeEmpty())
			Expect(conv.Busy()).To(BeFalse())
		})
	})
})

var _ = Describe("Client against a relay", func() {
	var (
		r      *relay.Relay
		prov   *testutils.MockProvider
		client *conversation.Client
	)

	BeforeEach(func() {
		prov = testutils.NewMockProvider("Hel", "lo", "!")

		var err error
		r, err = relay.New(relay.Config{Model: "gpt-3.5-turbo"}, prov, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() {
			defer GinkgoRecover()
			_ = r.RunWithListener(ln)
		}()

		client = conversation.NewClient("http://" + ln.Addr().String())
	})

	AfterEach(func() {
		Expect(r.Close()).To(Succeed())
	})

	It("streams Hel + lo + ! into the assistant message as Hello!", func() {
		conv := conversation.New()
		var fragments []string
		conv.OnChange(func(ev conversation.Event) {
			if ev.Kind == conversation.EventFragment {
				fragments = append(fragments, ev.Fragment)
			}
		})
		conv.SetInput("hi")

		Expect(client.Send(context.Background(), conv)).To(Succeed())

		Expect(conv.Messages()).To(Equal([]llm.Message{
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, Content: "Hello!"},
		}))
		Expect(fragments).NotTo(BeEmpty())
		Expect(prov.Calls()).To(Equal(1))
		Expect(prov.LastRequest().Messages[1]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "hi"}))
	})

	It("records the error text when the provider fails before streaming", func() {
		prov.StartErr = io.ErrUnexpectedEOF
		conv := conversation.New()
		conv.SetInput("hi")

		Expect(client.Send(context.Background(), conv)).To(Succeed())
		Expect(conv.Messages()[1].Content).To(Equal(conversation.ErrorMessage))
	})

	It("pings the relay", func() {
		Expect(client.Ping(context.Background())).To(Succeed())
	})

	It("keeps the partial answer when the provider fails mid-stream", func() {
		prov.StreamErr = io.ErrUnexpectedEOF
		conv := conversation.New()
		conv.SetInput("hi")

		Expect(client.Send(context.Background(), conv)).To(Succeed())
		Expect(conv.Messages()[1].Content).To(Equal("Hello!"))
		Expect(conv.Busy()).To(BeFalse())
	})

	It("writes the error text when the stream aborts before any text", func() {
		prov.Deltas = nil
		prov.StreamErr = io.ErrUnexpectedEOF
		conv := conversation.New()
		conv.SetInput("hi")

		Expect(client.Send(context.Background(), conv)).To(Succeed())
		Expect(conv.Messages()[1].Content).To(Equal(conversation.ErrorMessage))
		Expect(conv.Busy()).To(BeFalse())
	})
})
