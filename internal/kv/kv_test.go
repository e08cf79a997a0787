package kv_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"knittex.app/boardroom/core/config"
	"knittex.app/boardroom/internal/kv"
)

// behavesLikeStore runs the shared contract against a backend.
func behavesLikeStore(open func() kv.Store) {
	var (
		ctx   context.Context
		store kv.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = open()
		DeferCleanup(func() { Expect(store.Close()).To(Succeed()) })
	})

	It("returns ErrNotFound for a key never written", func() {
		_, err := store.Get(ctx, fmt.Sprintf("missing:%d", time.Now().UnixNano()))
		Expect(err).To(MatchError(kv.ErrNotFound))
	})

	It("reads back the last value written", func() {
		key := fmt.Sprintf("knittex:test_%d", time.Now().UnixNano())
		Expect(store.Set(ctx, key, `{"a":1}`)).To(Succeed())
		Expect(store.Set(ctx, key, `{"a":2}`)).To(Succeed())

		got, err := store.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(`{"a":2}`))
	})

	It("keeps records under different keys apart", func() {
		suffix := time.Now().UnixNano()
		a := fmt.Sprintf("knittex:a_%d", suffix)
		b := fmt.Sprintf("knittex:b_%d", suffix)
		Expect(store.Set(ctx, a, "alpha")).To(Succeed())
		Expect(store.Set(ctx, b, "বিটা")).To(Succeed())

		Expect(store.Get(ctx, a)).To(Equal("alpha"))
		Expect(store.Get(ctx, b)).To(Equal("বিটা"))
	})
}

var _ = Describe("Key", func() {
	DescribeTable("namespaces records",
		func(namespace, want string) {
			Expect(kv.Key(namespace, kv.RecordConversations)).To(Equal(want))
		},
		Entry("default", "knittex", "knittex:chat_sessions"),
		Entry("slugified", "Knit Tex / Plant 2", "knit-tex-plant-2:chat_sessions"),
		Entry("empty falls back", "", "knittex:chat_sessions"),
		Entry("non-ascii falls back", "নিটটেক্স", "knittex:chat_sessions"),
	)
})

var _ = Describe("MemoryStore", func() {
	behavesLikeStore(func() kv.Store { return kv.NewMemoryStore() })
})

var _ = Describe("FileStore", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	behavesLikeStore(func() kv.Store {
		s, err := kv.NewFileStore(dir)
		Expect(err).NotTo(HaveOccurred())
		return s
	})

	It("requires a directory", func() {
		_, err := kv.NewFileStore("")
		Expect(err).To(HaveOccurred())
	})

	It("creates the directory on open", func() {
		nested := filepath.Join(dir, "a", "b")
		_, err := kv.NewFileStore(nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(nested).To(BeADirectory())
	})

	It("writes one file per key and leaves no temp file behind", func() {
		s, err := kv.NewFileStore(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Set(context.Background(), "knittex:chat_sessions", "{}")).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal("knittex_chat_sessions.json"))
	})

	It("survives reopening", func() {
		s, err := kv.NewFileStore(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Set(context.Background(), "knittex:factory_notes", "[]")).To(Succeed())

		reopened, err := kv.NewFileStore(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(reopened.Get(context.Background(), "knittex:factory_notes")).To(Equal("[]"))
	})

	DescribeTable("rejects unsafe keys",
		func(key string, want error) {
			s, err := kv.NewFileStore(dir)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Set(context.Background(), key, "x")).To(MatchError(want))
			_, err = s.Get(context.Background(), key)
			Expect(err).To(MatchError(want))
		},
		Entry("empty", "", kv.ErrInvalidKey),
		Entry("blank", "  ", kv.ErrInvalidKey),
		Entry("parent reference", "../escape", kv.ErrPathTraversal),
		Entry("nested path", "a/b", kv.ErrPathTraversal),
		Entry("absolute path", "/etc/passwd", kv.ErrPathTraversal),
		Entry("windows separator", `a\b`, kv.ErrPathTraversal),
	)
})

var _ = Describe("RedisStore", func() {
	url := os.Getenv("REDIS_TEST_URL")

	BeforeEach(func() {
		if url == "" {
			Skip("REDIS_TEST_URL not set")
		}
	})

	behavesLikeStore(func() kv.Store {
		s, err := kv.NewRedisStore(context.Background(), url)
		Expect(err).NotTo(HaveOccurred())
		return s
	})
})

var _ = Describe("PostgresStore", func() {
	url := os.Getenv("DATABASE_TEST_URL")

	BeforeEach(func() {
		if url == "" {
			Skip("DATABASE_TEST_URL not set")
		}
	})

	behavesLikeStore(func() kv.Store {
		s, err := kv.NewPostgresStore(context.Background(), config.StorageConfig{DatabaseURL: url})
		Expect(err).NotTo(HaveOccurred())
		return s
	})
})

var _ = Describe("Open", func() {
	It("opens the memory backend", func() {
		s, err := kv.Open(context.Background(), config.StorageConfig{Backend: config.BackendMemory})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&kv.MemoryStore{}))
	})

	It("opens the file backend", func() {
		s, err := kv.Open(context.Background(), config.StorageConfig{Backend: config.BackendFile, Dir: GinkgoT().TempDir()})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&kv.FileStore{}))
	})

	It("rejects unknown backends", func() {
		_, err := kv.Open(context.Background(), config.StorageConfig{Backend: "etcd"})
		Expect(err).To(MatchError(ContainSubstring("unknown storage backend")))
	})
})
