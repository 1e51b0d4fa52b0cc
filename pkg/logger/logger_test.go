package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		So(Get(), ShouldNotBeNil)
		So(Named("test"), ShouldNotBeNil)
		So(Sync(), ShouldBeNil)
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		l := New(&buf).Named("loader")
		ctx := context.Background()
		So(SetLevelString("info"), ShouldBeNil)

		Convey("When logging with fields", func() {
			l.Info(ctx, "dataset published",
				String("artifact", "screener.csv"),
				Int("rows", 3),
				Int64("generation", 7),
				Bool("discarded", false),
				Duration("took", 1500*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the fields are grouped under the name", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "dataset published")
				So(out, ShouldContainSubstring, "loader.artifact=screener.csv")
				So(out, ShouldContainSubstring, "loader.rows=3")
				So(out, ShouldContainSubstring, "loader.took=1.5s")
				So(out, ShouldContainSubstring, "loader.source=")
			})
		})

		Convey("When the level filters a message", func() {
			l.Debug(ctx, "hidden")
			So(buf.String(), ShouldEqual, "")
		})

		Convey("When the level is lowered", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			l.Debug(ctx, "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
			So(SetLevelString("info"), ShouldBeNil)
		})
	})

	Convey("Unknown levels are rejected", t, func() {
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
