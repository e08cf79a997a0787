package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/genai"
)

type reply struct {
	ManagerID string `json:"managerId" jsonschema:"description=Id of the speaking manager"`
	Text      string `json:"text"`
}

var _ = Describe("GenerateSchema", func() {
	It("produces a closed object with every field required", func() {
		s := GenerateSchema[reply]()
		Expect(s.Type).To(Equal("object"))
		Expect(s.Required).To(ConsistOf("managerId", "text"))

		_, ok := s.Properties.Get("managerId")
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("toGenaiSchema", func() {
	It("keeps types, requirements and property order", func() {
		out := toGenaiSchema(GenerateSchema[reply]())
		Expect(out.Type).To(Equal(genai.TypeObject))
		Expect(out.PropertyOrdering).To(Equal([]string{"managerId", "text"}))
		Expect(out.Required).To(ConsistOf("managerId", "text"))
		Expect(out.Properties["managerId"].Type).To(Equal(genai.TypeString))
		Expect(out.Properties["managerId"].Description).To(Equal("Id of the speaking manager"))
	})

	It("returns nil for nil", func() {
		Expect(toGenaiSchema(nil)).To(BeNil())
	})
})

var _ = Describe("list envelope", func() {
	It("wraps the item schema in a required replies array", func() {
		env := listEnvelope(Request{ListSchema: GenerateSchema[reply]()})

		data, err := json.Marshal(env)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"required":["replies"]`))
		Expect(string(data)).To(ContainSubstring(`"type":"array"`))
		Expect(string(data)).NotTo(ContainSubstring(`$schema`))
	})

	DescribeTable("unwrapList",
		func(input, want string) {
			Expect(unwrapList(input)).To(Equal(want))
		},
		Entry("enveloped", `{"replies":[{"managerId":"A","text":"hi"}]}`, `[{"managerId":"A","text":"hi"}]`),
		Entry("no envelope key", `{"other":[]}`, `{"other":[]}`),
		Entry("bare array", `[{"managerId":"A"}]`, `[{"managerId":"A"}]`),
		Entry("not json", `oops`, `oops`),
	)
})

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := New(context.Background(), Config{Provider: ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := New(context.Background(), Config{Provider: "anthropic", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("builds an openai client with its default model", func() {
		c, err := New(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Model()).To(Equal("gpt-4o-mini"))
	})

	It("lets a request override the model", func() {
		Expect(modelFor(Request{Model: "gemini-3-pro-preview"}, "gemini-3-flash-preview")).To(Equal("gemini-3-pro-preview"))
		Expect(modelFor(Request{}, "gemini-3-flash-preview")).To(Equal("gemini-3-flash-preview"))
	})
})

var _ = Describe("gemini Generate", func() {
	var (
		body     string
		lastPath string
		lastReq  string
		client   Client
	)

	BeforeEach(func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			lastPath = r.URL.Path
			lastReq = string(data)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = New(context.Background(), Config{
			Provider: ProviderGemini,
			APIKey:   "test-key",
			BaseURL:  server.URL,
			Model:    "gemini-test",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns the reply text and token usage", func() {
		body = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Shade is on target."}]},"finishReason":"STOP"}],` +
			`"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":5}}`

		resp, err := client.Generate(context.Background(), Request{
			SystemPrompt: "You are the lab manager.",
			Messages:     []Message{{Role: RoleUser, Content: "dE?"}},
			Temperature:  Temp(0.8),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text).To(Equal("Shade is on target."))
		Expect(resp.PromptTokens).To(Equal(12))
		Expect(resp.CompletionTokens).To(Equal(5))
		Expect(lastPath).To(HaveSuffix("models/gemini-test:generateContent"))
		Expect(lastReq).To(ContainSubstring("You are the lab manager."))
	})

	It("passes an empty reply through instead of failing", func() {
		body = `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]},"finishReason":"STOP"}]}`

		resp, err := client.Generate(context.Background(), Request{
			Messages: []Message{{Role: RoleUser, Content: "status"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(resp.Text)).To(BeEmpty())
		Expect(resp.Model).To(Equal("gemini-test"))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("does not retry nil or cancelled calls", func() {
		Expect(IsRetryable(ctx, nil)).To(BeFalse())
		Expect(IsRetryable(ctx, context.Canceled)).To(BeFalse())
		Expect(IsRetryable(ctx, context.DeadlineExceeded)).To(BeFalse())
	})

	It("retries gemini server errors but not client errors", func() {
		Expect(IsRetryable(ctx, &genai.APIError{Code: 503})).To(BeTrue())
		Expect(IsRetryable(ctx, &genai.APIError{Code: 429})).To(BeTrue())
		Expect(IsRetryable(ctx, &genai.APIError{Code: 400})).To(BeFalse())
	})

	It("retries plain network errors", func() {
		Expect(IsRetryable(ctx, errors.New("connection reset"))).To(BeTrue())
	})
})
