package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/okian/leap/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording requests", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the request is new", func() {
				seen := d.SeenAndRecord(context.Background(), "request-1")

				Convey("Then it should return false and record the request", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the request was already seen", func() {
				d.SeenAndRecord(context.Background(), "request-1")

				seen := d.SeenAndRecord(context.Background(), "request-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And multiple requests are recorded", func() {
				requests := []string{"request-1", "request-2", "request-3", "request-4", "request-5"}

				for _, id := range requests {
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all requests should be recorded", func() {
					So(d.Size(), ShouldEqual, int64(len(requests)))

					for _, id := range requests {
						seen := d.SeenAndRecord(context.Background(), id)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording requests", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the request exists", func() {
				d.SeenAndRecord(context.Background(), "request-1")
				So(d.Size(), ShouldEqual, 1)

				d.Unrecord(context.Background(), "request-1")

				Convey("Then it should be removed", func() {
					So(d.Size(), ShouldEqual, 0)

					seen := d.SeenAndRecord(context.Background(), "request-1")
					So(seen, ShouldBeFalse)
				})
			})

			Convey("And the request doesn't exist", func() {
				d.Unrecord(context.Background(), "nonexistent")

				Convey("Then it should not affect the size", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			Convey("And the deduper is at capacity", func() {
				for _, id := range []string{"request-1", "request-2", "request-3"} {
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, 3)

				seen := d.SeenAndRecord(context.Background(), "request-4")

				Convey("Then it should evict the oldest and add the new one", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)

					// The oldest entry was evicted, so re-recording it is
					// treated as new and the size stays capped.
					seen1 := d.SeenAndRecord(context.Background(), "request-1")
					So(seen1, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

			Convey("And many requests are recorded", func() {
				const numRequests = 1000
				for i := 0; i < numRequests; i++ {
					seen := d.SeenAndRecord(context.Background(), fmt.Sprintf("request-%d", i))
					So(seen, ShouldBeFalse)
				}

				Convey("Then all requests should be recorded without eviction", func() {
					So(d.Size(), ShouldEqual, int64(numRequests))

					for i := 0; i < numRequests; i++ {
						seen := d.SeenAndRecord(context.Background(), fmt.Sprintf("request-%d", i))
						So(seen, ShouldBeTrue)
					}
				})
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const requestsPerGoroutine = 100

		Convey("When multiple goroutines record requests concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < requestsPerGoroutine; j++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("request-%d-%d", goroutineID, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then all requests should be recorded successfully", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*requestsPerGoroutine))
			})
		})

		Convey("When multiple goroutines unrecord requests concurrently", func() {
			const numRequests = 500
			for i := 0; i < numRequests; i++ {
				d.SeenAndRecord(context.Background(), fmt.Sprintf("request-%d", i))
			}
			So(d.Size(), ShouldEqual, int64(numRequests))

			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < numRequests/numGoroutines; j++ {
						id := fmt.Sprintf("request-%d", goroutineID*(numRequests/numGoroutines)+j)
						d.Unrecord(context.Background(), id)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then all requests should be unrecorded successfully", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		Convey("When recording an empty string", func() {
			d := dedupe.NewInMemoryDeduper()

			seen := d.SeenAndRecord(context.Background(), "")

			Convey("Then it should be recorded like any other ID", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				So(d.SeenAndRecord(context.Background(), ""), ShouldBeTrue)
			})
		})

		Convey("When recording very long strings", func() {
			d := dedupe.NewInMemoryDeduper()

			longString := strings.Repeat("a", 10000)
			seen := d.SeenAndRecord(context.Background(), longString)

			Convey("Then it should handle long strings", func() {
				So(seen, ShouldBeFalse)
				So(d.SeenAndRecord(context.Background(), longString), ShouldBeTrue)
			})
		})

		Convey("When using a max size of one", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))

			Convey("And adding multiple requests", func() {
				So(d.SeenAndRecord(context.Background(), "request-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Second request evicts the first.
				So(d.SeenAndRecord(context.Background(), "request-2"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				So(d.SeenAndRecord(context.Background(), "request-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When using negative max size", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

			Convey("Then it should be unbounded", func() {
				const numRequests = 1000
				for i := 0; i < numRequests; i++ {
					So(d.SeenAndRecord(context.Background(), fmt.Sprintf("request-%d", i)), ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, int64(numRequests))
			})
		})
	})
}
