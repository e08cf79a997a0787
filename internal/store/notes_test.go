package store_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"knittex.app/boardroom/internal/kv"
	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/store"
)

var _ = Describe("KVNoteStore", func() {
	var (
		ctx     context.Context
		backing *kv.MemoryStore
		s       *store.KVNoteStore
		at      time.Time
	)

	note := func(id string) model.Note {
		return model.Note{ID: id, Question: "q" + id, Answer: "a" + id, ManagerName: "Rahim", Timestamp: at}
	}

	BeforeEach(func() {
		ctx = context.Background()
		backing = kv.NewMemoryStore()
		s = store.NewNoteStore(backing, "knittex")
		at = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
		Expect(s.Load(ctx)).To(Succeed())
	})

	It("prepends new notes", func() {
		Expect(s.Add(ctx, note("1"))).To(Succeed())
		Expect(s.Add(ctx, note("2"))).To(Succeed())

		notes := s.Get()
		Expect(notes).To(HaveLen(2))
		Expect(notes[0].ID).To(Equal("2"))
		Expect(notes[1].ID).To(Equal("1"))
	})

	It("round-trips through the backing record", func() {
		Expect(s.Add(ctx, note("1"))).To(Succeed())
		Expect(s.Add(ctx, note("2"))).To(Succeed())

		raw, err := backing.Get(ctx, "knittex:factory_notes")
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(ContainSubstring(`"managerName":"Rahim"`))

		reloaded := store.NewNoteStore(backing, "knittex")
		Expect(reloaded.Load(ctx)).To(Succeed())
		Expect(reloaded.Get()).To(Equal(s.Get()))
	})

	It("removes a note by id", func() {
		Expect(s.Add(ctx, note("1"))).To(Succeed())
		Expect(s.Add(ctx, note("2"))).To(Succeed())

		Expect(s.Remove(ctx, "1")).To(Succeed())
		Expect(s.Get()).To(HaveLen(1))
		Expect(s.Get()[0].ID).To(Equal("2"))
	})

	It("leaves notes untouched when removing a missing id", func() {
		Expect(s.Add(ctx, note("1"))).To(Succeed())
		Expect(s.Remove(ctx, "9")).To(MatchError(store.ErrNotFound))
		Expect(s.Get()).To(HaveLen(1))
	})

	It("clears all notes and persists an empty list", func() {
		Expect(s.Add(ctx, note("1"))).To(Succeed())
		Expect(s.Clear(ctx)).To(Succeed())
		Expect(s.Get()).To(BeEmpty())
		Expect(backing.Get(ctx, "knittex:factory_notes")).To(Equal("[]"))
	})

	It("drops malformed notes and keeps the rest", func() {
		record := `[
			{"id":"1","question":"q","answer":"a","managerName":"Rahim","timestamp":"2025-06-02T08:00:00Z"},
			{"id":"2","question":"q","answer":"a","managerName":"Rahim","timestamp":"not a time"},
			{"question":"no id","answer":"a","managerName":"Rahim","timestamp":"2025-06-02T08:00:00Z"},
			42
		]`
		Expect(backing.Set(ctx, "knittex:factory_notes", record)).To(Succeed())

		Expect(s.Load(ctx)).To(Succeed())
		Expect(s.Get()).To(HaveLen(1))
		Expect(s.Get()[0].ID).To(Equal("1"))
	})

	It("starts empty when the record is not a list", func() {
		Expect(backing.Set(ctx, "knittex:factory_notes", `{"id":"1"}`)).To(Succeed())
		Expect(s.Load(ctx)).To(Succeed())
		Expect(s.Get()).To(BeEmpty())
	})
})

var _ = Describe("NewNote", func() {
	at := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	counter := 0
	newID := func() string {
		counter++
		return fmt.Sprintf("n%d", counter)
	}

	It("pairs a reply with the nearest preceding user message", func() {
		messages := []model.Message{
			model.NewUserMessage("Older question", at),
			model.NewAssistantMessage(model.CounterpartLabManager, "Older answer", at, nil),
			model.NewUserMessage("What is the shade deviation?", at),
			model.NewAssistantMessage(model.CounterpartLabManager, "dE is 0.6", at, nil),
			model.NewAssistantMessage(model.CounterpartQAHead, "Within tolerance", at, nil),
		}

		note, err := store.NewNote(messages, 4, at, newID)
		Expect(err).NotTo(HaveOccurred())
		Expect(note.Question).To(Equal("What is the shade deviation?"))
		Expect(note.Answer).To(Equal("Within tolerance"))

		qa, _ := model.LookupManager(model.CounterpartQAHead)
		Expect(note.ManagerName).To(Equal(qa.Name))
		Expect(note.ID).NotTo(BeEmpty())
		Expect(note.Timestamp).To(Equal(at))

		earlier, err := store.NewNote(messages, 1, at, newID)
		Expect(err).NotTo(HaveOccurred())
		Expect(earlier.Question).To(Equal("Older question"))
		Expect(earlier.Answer).To(Equal("Older answer"))
	})

	It("falls back when no user message precedes the reply", func() {
		messages := []model.Message{
			model.NewAssistantMessage(model.CounterpartPlanningManager, "Plan is ready", at, nil),
		}

		note, err := store.NewNote(messages, 0, at, newID)
		Expect(err).NotTo(HaveOccurred())
		Expect(note.Question).To(Equal("Management Update"))
	})

	It("falls back when the speaker is unknown", func() {
		messages := []model.Message{
			model.NewUserMessage("hi", at),
			{Role: model.RoleAssistant, Content: "hello", Timestamp: at},
		}

		note, err := store.NewNote(messages, 1, at, newID)
		Expect(err).NotTo(HaveOccurred())
		Expect(note.ManagerName).To(Equal("Senior Manager"))
	})

	DescribeTable("rejects invalid sources",
		func(index int) {
			messages := []model.Message{
				model.NewUserMessage("hi", at),
				model.NewAssistantMessage(model.CounterpartLabManager, "hello", at, nil),
			}
			_, err := store.NewNote(messages, index, at, newID)
			Expect(err).To(MatchError(store.ErrInvalidNoteSource))
		},
		Entry("negative index", -1),
		Entry("index past the end", 2),
		Entry("user message", 0),
	)
})
