package database

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeHandle struct {
	closed bool
}

func (f *fakeHandle) Ping(context.Context) error { return nil }

func (f *fakeHandle) QueryRecords(context.Context, string, ...any) ([]Record, error) {
	return []Record{{"id": int64(1)}}, nil
}

func (f *fakeHandle) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

type recordingObserver struct {
	driver string
	err    error
	calls  int
}

func (r *recordingObserver) ObserveConnect(driver string, _ time.Duration, err error) {
	r.driver = driver
	r.err = err
	r.calls++
}

var _ = Describe("Open", func() {
	const fakeDriver = "fake"

	var received ConnectionDescriptor

	AfterEach(func() {
		UnregisterDriver(fakeDriver)
	})

	Context("when the connector fails", func() {
		BeforeEach(func() {
			RegisterDriver(fakeDriver, func(_ context.Context, d ConnectionDescriptor) (Handle, error) {
				received = d
				return nil, errors.New("dial tcp 10.0.0.1:3306: connect: connection refused")
			})
		})

		It("returns a ConnectionError carrying the underlying reason", func() {
			d := ConnectionDescriptor{Driver: fakeDriver, Host: "10.0.0.1", Port: 3306, User: "u", Password: "secret"}

			handle, err := Open(context.Background(), d)
			Expect(handle).To(BeNil())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("connection refused"))
			Expect(err.Error()).To(HavePrefix("database connection failed: "))

			var connErr *ConnectionError
			Expect(errors.As(err, &connErr)).To(BeTrue())
			Expect(connErr.Descriptor.Password).To(Equal("****"))
			Expect(connErr.Unwrap().Error()).To(ContainSubstring("connection refused"))
		})

		It("does not modify the descriptor it was given", func() {
			d := ConnectionDescriptor{Driver: fakeDriver, Host: "10.0.0.1", Port: 3306, User: "u", Password: "secret"}
			original := d

			_, err := Open(context.Background(), d)
			Expect(err).To(HaveOccurred())
			Expect(d).To(Equal(original))
			Expect(received).To(Equal(original))
		})

		It("calls the connector exactly once", func() {
			calls := 0
			RegisterDriver(fakeDriver, func(context.Context, ConnectionDescriptor) (Handle, error) {
				calls++
				return nil, errors.New("boom")
			})

			_, err := Open(context.Background(), ConnectionDescriptor{Driver: fakeDriver})
			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal(1))
		})

		It("reports the failure to the observer", func() {
			observer := &recordingObserver{}
			_, err := Open(context.Background(), ConnectionDescriptor{Driver: fakeDriver}, WithObserver(observer))
			Expect(err).To(HaveOccurred())
			Expect(observer.calls).To(Equal(1))
			Expect(observer.driver).To(Equal(fakeDriver))
			Expect(observer.err).To(HaveOccurred())
		})
	})

	Context("when the connector succeeds", func() {
		var handle *fakeHandle

		BeforeEach(func() {
			handle = &fakeHandle{}
			RegisterDriver(fakeDriver, func(context.Context, ConnectionDescriptor) (Handle, error) {
				return handle, nil
			})
		})

		It("returns the handle for the caller to close", func() {
			observer := &recordingObserver{}
			h, err := Open(context.Background(), ConnectionDescriptor{Driver: fakeDriver}, WithObserver(observer))
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(BeIdenticalTo(handle))
			Expect(observer.err).NotTo(HaveOccurred())

			records, err := h.QueryRecords(context.Background(), "SELECT 1 AS id")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(ConsistOf(Record{"id": int64(1)}))

			Expect(h.Close()).To(Succeed())
			Expect(handle.closed).To(BeTrue())
		})
	})

	Context("when no connector is registered for the driver", func() {
		It("returns a ConnectionError", func() {
			_, err := Open(context.Background(), ConnectionDescriptor{Driver: "oracle"})
			var connErr *ConnectionError
			Expect(errors.As(err, &connErr)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(`no connector registered for driver "oracle"`))
		})
	})

	Context("with the built-in MySQL connector", func() {
		It("surfaces the driver error when nothing listens on the port", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			d := DefaultDescriptor()
			d.Host = "127.0.0.1"
			d.Port = 1

			_, err := Open(ctx, d)
			var connErr *ConnectionError
			Expect(errors.As(err, &connErr)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("failed to ping MySQL database"))
		})
	})

	It("lists the built-in drivers", func() {
		Expect(Drivers()).To(ContainElements(DriverMySQL, DriverPostgres))
	})
})

type fakeRows struct {
	columns []string
	rows    [][]any
	index   int
	err     error
}

func (f *fakeRows) Columns() ([]string, error) { return f.columns, nil }

func (f *fakeRows) Next() bool {
	if f.index >= len(f.rows) {
		return false
	}
	f.index++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.index-1]
	for i := range dest {
		*(dest[i].(*any)) = row[i]
	}
	return nil
}

func (f *fakeRows) Err() error { return f.err }

var _ = Describe("scanRecords", func() {
	It("keys every value by column name and converts bytes to strings", func() {
		rows := &fakeRows{
			columns: []string{"id", "title", "sealed"},
			rows: [][]any{
				{int64(1), []byte("Case 1"), nil},
				{int64(2), []byte("Case 2"), int64(1)},
			},
		}

		records, err := scanRecords(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]Record{
			{"id": int64(1), "title": "Case 1", "sealed": nil},
			{"id": int64(2), "title": "Case 2", "sealed": int64(1)},
		}))
	})

	It("returns an empty slice for an empty result", func() {
		records, err := scanRecords(&fakeRows{columns: []string{"id"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
		Expect(records).NotTo(BeNil())
	})

	It("propagates iteration errors", func() {
		_, err := scanRecords(&fakeRows{columns: []string{"id"}, err: errors.New("lost connection")})
		Expect(err).To(MatchError(ContainSubstring("lost connection")))
	})
})
