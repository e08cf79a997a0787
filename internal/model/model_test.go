package model_test

import (
	"bytes"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"knittex.app/boardroom/internal/model"
)

var _ = Describe("Counterpart", func() {
	It("lists the meeting room first and every manager after it", func() {
		all := model.Counterparts()
		Expect(all).To(HaveLen(7))
		Expect(all[0]).To(Equal(model.CounterpartMeetingRoom))
		Expect(model.Managers()).NotTo(ContainElement(model.CounterpartMeetingRoom))
	})

	It("has a roster profile for every counterpart", func() {
		for _, c := range model.Counterparts() {
			m, ok := model.LookupManager(c)
			Expect(ok).To(BeTrue(), string(c))
			Expect(m.Name).NotTo(BeEmpty())
		}
	})

	DescribeTable("ParseCounterpart",
		func(input string, want model.Counterpart) {
			got, err := model.ParseCounterpart(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("canonical id", "LAB_SENIOR_MANAGER", model.CounterpartLabManager),
		Entry("lowercase id", "quality_assurance_head", model.CounterpartQAHead),
		Entry("alias", "qa", model.CounterpartQAHead),
		Entry("alias with spaces", "  Meeting ", model.CounterpartMeetingRoom),
	)

	It("rejects unknown counterparts", func() {
		_, err := model.ParseCounterpart("CEO")
		Expect(err).To(HaveOccurred())
	})

	It("only treats the meeting room as a group", func() {
		Expect(model.CounterpartMeetingRoom.IsGroup()).To(BeTrue())
		Expect(model.CounterpartLabManager.IsGroup()).To(BeFalse())
	})
})

var _ = Describe("Message", func() {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	It("never carries a speaker on user turns after decoding", func() {
		var m model.Message
		err := json.Unmarshal([]byte(`{"role":"user","speaker":"LAB_SENIOR_MANAGER","content":"hi","timestamp":"2025-03-01T09:30:00Z"}`), &m)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Speaker).To(BeEmpty())
		Expect(m.Timestamp).To(Equal(at))
	})

	It("rejects unknown roles and speakers", func() {
		var m model.Message
		Expect(json.Unmarshal([]byte(`{"role":"system","content":"x","timestamp":"2025-03-01T09:30:00Z"}`), &m)).To(HaveOccurred())
		Expect(json.Unmarshal([]byte(`{"role":"assistant","speaker":"CEO","content":"x","timestamp":"2025-03-01T09:30:00Z"}`), &m)).To(HaveOccurred())
	})

	It("round-trips an assistant message with attachments", func() {
		chart := model.Chart{
			Type:     "bar",
			Title:    "Q1",
			Labels:   []string{"Jan", "Feb"},
			Datasets: []model.Dataset{{Label: "Output", Values: []float64{10, 20}}},
			Extra:    map[string]json.RawMessage{"unit": json.RawMessage(`"kg"`)},
		}
		in := model.NewAssistantMessage(model.CounterpartDyeingManager, "shade ok", at, []model.Attachment{
			model.NewChartAttachment(chart),
			model.NewImageAttachment("https://loremflickr.com/800/600/lab", ""),
		})

		data, err := json.Marshal(in)
		Expect(err).NotTo(HaveOccurred())

		var out model.Message
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out).To(Equal(in))
	})

	It("keeps loosely typed chart fields stable across a save", func() {
		var chart model.Chart
		Expect(json.Unmarshal([]byte(`{"title":2024,"labels":{"a":1},"datasets":[{"label":"Kg","values":["5"]}]}`), &chart)).To(Succeed())
		Expect(chart.Title).To(Equal("2024"))
		Expect(chart.Labels).To(BeNil())
		Expect(chart.Extra).To(HaveKey("labels"))
		Expect(chart.Datasets).To(Equal([]model.Dataset{{Label: "Kg", Values: []float64{5}}}))

		data, err := json.Marshal(chart)
		Expect(err).NotTo(HaveOccurred())

		var again model.Chart
		Expect(json.Unmarshal(data, &again)).To(Succeed())
		Expect(again).To(Equal(chart))
	})

	It("keeps no-attachment messages attachment-free", func() {
		in := model.NewUserMessage("hello", at)
		Expect(in.Attachments).To(BeNil())

		data, err := json.Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("attachments"))
	})
})

var _ = Describe("Attachment", func() {
	It("encodes uploads as data URLs", func() {
		a := model.NewUploadAttachment(model.InlineImage{MIMEType: "image/png", Data: []byte("abc")})
		Expect(a.Kind).To(Equal(model.AttachmentImage))
		Expect(a.URL).To(Equal("data:image/png;base64,YWJj"))
		Expect(a.MIMEType).To(Equal("image/png"))
	})

	It("rejects attachments missing their payload", func() {
		var a model.Attachment
		Expect(json.Unmarshal([]byte(`{"type":"image"}`), &a)).To(HaveOccurred())
		Expect(json.Unmarshal([]byte(`{"type":"chart"}`), &a)).To(HaveOccurred())
		Expect(json.Unmarshal([]byte(`{"type":"video","url":"x"}`), &a)).To(HaveOccurred())
	})

	It("renders charts with the default title and scaled bars", func() {
		a := model.NewChartAttachment(model.Chart{
			Labels:   []string{"Jan", "February"},
			Datasets: []model.Dataset{{Label: "Output", Values: []float64{12, 24}}},
		})

		var buf bytes.Buffer
		Expect(a.Render(&buf)).To(Succeed())
		out := buf.String()
		Expect(out).To(HavePrefix("PRODUCTION METRICS\n"))
		Expect(out).To(ContainSubstring("Jan      |" + repeat("█", 12) + " 12"))
		Expect(out).To(ContainSubstring("February |" + repeat("█", 24) + " 24"))
	})

	It("renders image references as their URL", func() {
		var buf bytes.Buffer
		Expect(model.NewImageAttachment("https://example.com/a.jpg", "").Render(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("[image] https://example.com/a.jpg\n"))
	})
})

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
