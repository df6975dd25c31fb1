package storage_test

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/samber/mo"

	"github.com/msaldanha/plasticine/storage"
)

type profile struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

var _ = Describe("WebStorage", func() {
	var mock *clock.Mock
	var st *storage.MemoryStore

	newWebStorage := func(prefix string, timeout mo.Option[time.Duration]) *storage.WebStorage {
		ws, er := storage.NewWebStorage(storage.Options{
			Store:   st,
			Prefix:  prefix,
			Timeout: timeout,
			Clock:   mock,
		})
		Expect(er).To(BeNil())
		return ws
	}

	BeforeEach(func() {
		mock = clock.NewMock()
		mock.Set(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
		st = storage.NewMemoryStore()
	})

	It("Should require a store", func() {
		_, er := storage.NewWebStorage(storage.Options{})
		Expect(er).To(MatchError(storage.ErrNilStore))
	})
	It("Should namespace and upper case keys", func() {
		ws := newWebStorage("admin__dev", mo.None[time.Duration]())

		Expect(ws.Key("token__")).To(Equal("ADMIN__DEVTOKEN__"))
		Expect(ws.Set("token__", "abc")).To(Succeed())

		_, found, _ := st.Get("ADMIN__DEVTOKEN__")
		Expect(found).To(BeTrue())
	})
	It("Should read back what was written before expiry", func() {
		ws := newWebStorage("app", mo.None[time.Duration]())

		p := profile{Name: "root", Roles: []string{"admin"}}
		Expect(ws.SetWithTTL("profile", p, mo.Some(time.Minute))).To(Succeed())

		mock.Add(59 * time.Second)
		Expect(storage.Read(ws, "profile", profile{})).To(Equal(p))
	})
	It("Should return the default and drop the key once expired", func() {
		ws := newWebStorage("app", mo.None[time.Duration]())

		Expect(ws.SetWithTTL("k", "v", mo.Some(time.Second))).To(Succeed())
		mock.Add(1001 * time.Millisecond)

		Expect(storage.Read(ws, "k", "default")).To(Equal("default"))
		_, found, _ := st.Get(ws.Key("k"))
		Expect(found).To(BeFalse())
	})
	It("Should apply the configured timeout on Set", func() {
		ws := newWebStorage("app", mo.Some(time.Second))

		Expect(ws.Set("k", 42)).To(Succeed())
		Expect(storage.Read(ws, "k", 0)).To(Equal(42))

		mock.Add(2 * time.Second)
		Expect(storage.Read(ws, "k", 0)).To(Equal(0))
	})
	It("Should keep values without expiry", func() {
		ws := newWebStorage("app", mo.None[time.Duration]())

		Expect(ws.SetWithTTL("k", "v", mo.Some(time.Duration(0)))).To(Succeed())
		mock.Add(24 * time.Hour * 365)

		Expect(storage.Read(ws, "k", "")).To(Equal("v"))
	})
	It("Should treat corrupt entries as absent", func() {
		ws := newWebStorage("app", mo.None[time.Duration]())

		Expect(st.Set(ws.Key("k"), "{not json")).To(Succeed())
		Expect(storage.Read(ws, "k", "default")).To(Equal("default"))

		Expect(ws.Set("n", "text")).To(Succeed())
		Expect(storage.Read(ws, "n", 7)).To(Equal(7))
	})
	It("Should not mix values of different prefixes", func() {
		a := newWebStorage("A", mo.None[time.Duration]())
		b := newWebStorage("B", mo.None[time.Duration]())

		Expect(a.Set("x", "from a")).To(Succeed())
		Expect(b.Set("x", "from b")).To(Succeed())

		Expect(storage.Read(a, "x", "")).To(Equal("from a"))
		Expect(storage.Read(b, "x", "")).To(Equal("from b"))

		Expect(a.Remove("x")).To(Succeed())
		Expect(storage.Read(a, "x", "none")).To(Equal("none"))
		Expect(storage.Read(b, "x", "none")).To(Equal("from b"))
	})
	It("Should clear the whole store or only its namespace", func() {
		a := newWebStorage("A", mo.None[time.Duration]())
		b := newWebStorage("B", mo.None[time.Duration]())

		Expect(a.Set("x", 1)).To(Succeed())
		Expect(b.Set("x", 2)).To(Succeed())

		Expect(a.ClearNamespace()).To(Succeed())
		Expect(storage.Read(a, "x", 0)).To(Equal(0))
		Expect(storage.Read(b, "x", 0)).To(Equal(2))

		Expect(a.Set("x", 1)).To(Succeed())
		Expect(a.Clear()).To(Succeed())
		Expect(storage.Read(b, "x", 0)).To(Equal(0))
	})
	It("Should not clear namespaces sharing the prefix text", func() {
		prod := newWebStorage("APP__PRODUCTION__", mo.None[time.Duration]())
		prod2 := newWebStorage("APP__PRODUCTION2__", mo.None[time.Duration]())

		Expect(prod.Set("x", 1)).To(Succeed())
		Expect(prod2.Set("x", 2)).To(Succeed())

		Expect(prod.ClearNamespace()).To(Succeed())
		Expect(storage.Read(prod, "x", 0)).To(Equal(0))
		Expect(storage.Read(prod2, "x", 0)).To(Equal(2))
	})
	It("Should refuse to clear a namespace without prefix", func() {
		ws := newWebStorage("", mo.None[time.Duration]())
		Expect(ws.Set("x", 1)).To(Succeed())

		Expect(ws.ClearNamespace()).To(MatchError(storage.ErrEmptyPrefix))
		Expect(storage.Read(ws, "x", 0)).To(Equal(1))
	})
	It("Should degrade to the default when the store fails", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		ms := storage.NewMockStore(mockCtrl)
		ms.EXPECT().Get("APPK").Return("", false, errors.New("disk gone"))

		ws, _ := storage.NewWebStorage(storage.Options{Store: ms, Prefix: "app", Clock: mock})
		Expect(storage.Read(ws, "k", "default")).To(Equal("default"))
	})
	It("Should return store write errors", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		ms := storage.NewMockStore(mockCtrl)
		ms.EXPECT().Set("APPK", gomock.Any()).Return(errors.New("read only"))

		ws, _ := storage.NewWebStorage(storage.Options{Store: ms, Prefix: "app", Clock: mock})
		Expect(ws.Set("k", "v")).To(MatchError("read only"))
	})
	It("Should report values that cannot be encoded", func() {
		ws := newWebStorage("app", mo.None[time.Duration]())

		er := ws.Set("k", make(chan int))
		Expect(errors.Is(er, storage.ErrEncode)).To(BeTrue())
	})
})
