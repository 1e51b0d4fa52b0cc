package columns_test

import (
	"testing"

	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/tabular"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given an export header", t, func() {
		Convey("Aliases match regardless of case and padding", func() {
			m := columns.Resolve([]string{" Symbol ", "RS_GLOBAL", "ret_1m"}, columns.DefaultAliases)

			c, ok := m.Column(columns.Ticker)
			So(ok, ShouldBeTrue)
			So(c, ShouldEqual, "Symbol")

			c, ok = m.Column(columns.Score)
			So(ok, ShouldBeTrue)
			So(c, ShouldEqual, "RS_GLOBAL")
		})

		Convey("The first alias in priority order wins", func() {
			m := columns.Resolve([]string{"score", "RS_Global", "RS"}, columns.DefaultAliases)
			c, _ := m.Column(columns.Score)
			So(c, ShouldEqual, "RS_Global")
		})

		Convey("Fields with no matching column are unresolved", func() {
			m := columns.Resolve([]string{"ticker", "RS_Global"}, columns.DefaultAliases)
			_, ok := m.Column(columns.Price)
			So(ok, ShouldBeFalse)
			So(m.Unresolved(), ShouldContain, columns.Price)
			So(m.Unresolved(), ShouldNotContain, columns.Ticker)
		})

		Convey("Either historical cap column name resolves", func() {
			a := columns.Resolve([]string{"market_cap_bucket"}, columns.DefaultAliases)
			b := columns.Resolve([]string{"Market Cap"}, columns.DefaultAliases)
			ca, _ := a.Column(columns.CapBucket)
			cb, _ := b.Column(columns.CapBucket)
			So(ca, ShouldEqual, "market_cap_bucket")
			So(cb, ShouldEqual, "Market Cap")
		})
	})
}

func TestResolveTable(t *testing.T) {
	Convey("Given a header-only data set", t, func() {
		m := columns.ResolveTable(tabular.ParseTable("ticker,RS_Global\n"), columns.DefaultAliases)

		Convey("Every field is unresolved", func() {
			So(len(m.Unresolved()), ShouldEqual, len(columns.Fields()))
		})
	})

	Convey("Given a populated data set", t, func() {
		m := columns.ResolveTable(tabular.ParseTable("ticker,RS_Global\nAAPL,90\n"), columns.DefaultAliases)

		Convey("The header drives resolution", func() {
			So(m.Resolved(), ShouldResemble, map[columns.Field]string{
				columns.Ticker: "ticker",
				columns.Score:  "RS_Global",
			})
		})
	})
}

func TestFieldString(t *testing.T) {
	Convey("Fields have stable wire names", t, func() {
		So(columns.Return1M.String(), ShouldEqual, "ret_1m")
		So(columns.Field(99).String(), ShouldEqual, "unknown")
	})
}
