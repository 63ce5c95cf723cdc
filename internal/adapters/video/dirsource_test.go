package video_test

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	video "github.com/okian/leap/internal/adapters/video"
	. "github.com/smartystreets/goconvey/convey"
)

// writeClip lays out a frame directory: a manifest plus one PNG per
// timestamp in milliseconds.
func writeClip(t *testing.T, dir string, durationSeconds float64, w, h int, stampsMs []int) {
	t.Helper()
	manifest := fmt.Sprintf(`{"duration_seconds": %v, "width": %d, "height": %d}`, durationSeconds, w, h)
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, ms := range stampsMs {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%06d.png", ms)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
	}
}

func TestDirSource(t *testing.T) {
	Convey("Given a clip directory with three frames", t, func() {
		dir := t.TempDir()
		writeClip(t, dir, 2.0, 320, 240, []int{0, 500, 1000})

		src, err := video.OpenDirSource(dir)
		So(err, ShouldBeNil)

		Convey("When reading metadata", func() {
			Convey("Then duration and dimensions come from the manifest", func() {
				So(src.Duration(), ShouldEqual, 2.0)
				w, h := src.Dimensions()
				So(w, ShouldEqual, 320)
				So(h, ShouldEqual, 240)
				So(src.ID(), ShouldEqual, dir)
			})
		})

		Convey("When seeking", func() {
			frame, err := src.Seek(context.Background(), 0.45, time.Second)

			Convey("Then the nearest frame is decoded", func() {
				So(err, ShouldBeNil)
				So(frame, ShouldNotBeNil)
				So(frame.Bounds().Dx(), ShouldEqual, 320)
			})
		})

		Convey("When seeking past the end", func() {
			frame, err := src.Seek(context.Background(), 99, time.Second)

			Convey("Then the last frame is returned", func() {
				So(err, ShouldBeNil)
				So(frame, ShouldNotBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := src.Seek(ctx, 0, time.Second)

			Convey("Then the seek aborts", func() {
				So(err, ShouldWrap, context.Canceled)
			})
		})
	})

	Convey("Given an oversized clip", t, func() {
		dir := t.TempDir()
		writeClip(t, dir, 1.0, 1080, 1920, []int{0})

		src, err := video.OpenDirSource(dir)
		So(err, ShouldBeNil)

		Convey("When reading dimensions and frames", func() {
			w, h := src.Dimensions()
			frame, seekErr := src.Seek(context.Background(), 0, time.Second)

			Convey("Then both are scaled to the analysis resolution", func() {
				So(seekErr, ShouldBeNil)
				So(h, ShouldEqual, 512)
				So(w, ShouldEqual, 288)
				So(frame.Bounds().Dx(), ShouldEqual, w)
				So(frame.Bounds().Dy(), ShouldEqual, h)
			})
		})
	})

	Convey("Given broken clip directories", t, func() {
		Convey("When the manifest is missing", func() {
			_, err := video.OpenDirSource(t.TempDir())

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the manifest has zero duration", func() {
			dir := t.TempDir()
			writeClip(t, dir, 0, 320, 240, []int{0})
			_, err := video.OpenDirSource(dir)

			Convey("Then opening fails with a manifest error", func() {
				So(err, ShouldWrap, video.ErrBadManifest)
			})
		})

		Convey("When the directory holds no frames", func() {
			dir := t.TempDir()
			writeClip(t, dir, 2.0, 320, 240, nil)
			_, err := video.OpenDirSource(dir)

			Convey("Then opening fails with a no-frames error", func() {
				So(err, ShouldWrap, video.ErrNoFrames)
			})
		})
	})
}

func TestDirOpener(t *testing.T) {
	Convey("Given an opener rooted at a frames directory", t, func() {
		root := t.TempDir()
		clip := filepath.Join(root, "clip-1")
		So(os.Mkdir(clip, 0o750), ShouldBeNil)
		writeClip(t, clip, 1.0, 320, 240, []int{0})

		opener := video.NewDirOpener(root)

		Convey("When opening a valid ref", func() {
			src, err := opener.Open(context.Background(), "clip-1")

			Convey("Then the clip opens", func() {
				So(err, ShouldBeNil)
				So(src.Duration(), ShouldEqual, 1.0)
			})
		})

		Convey("When the ref escapes the root", func() {
			_, err := opener.Open(context.Background(), "../etc")

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, video.ErrBadSourceRef)
			})
		})

		Convey("When the ref is absolute", func() {
			_, err := opener.Open(context.Background(), "/etc")

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, video.ErrBadSourceRef)
			})
		})
	})
}
