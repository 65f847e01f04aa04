// In-process revenue aggregation. Buckets live only for the lifetime of the
// process and are not shared between instances; restarting loses them.

package revenue

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Growth-rate clamp for projections, per day.
var (
	minGrowthRate = decimal.NewFromFloat(-0.10)
	maxGrowthRate = decimal.NewFromFloat(0.25)
)

// Sale is one completed order fed into the tracker.
type Sale struct {
	UserID   uint
	Total    int64          // cents
	Products map[uint]int64 // product ID -> amount contributed
}

type bucket struct {
	Revenue int64
	Orders  int
	clients map[uint]struct{}
}

func newBucket() *bucket {
	return &bucket{clients: make(map[uint]struct{})}
}

type productStats struct {
	Revenue int64
	Orders  int
}

// Alert records a crossed daily goal.
type Alert struct {
	Date    string    `json:"date"`
	Kind    string    `json:"kind"` // "clients" or "revenue"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Tracker struct {
	mu sync.Mutex

	daily   map[string]*bucket
	weekly  map[string]*bucket
	monthly map[string]*bucket
	yearly  map[string]*bucket

	products map[uint]*productStats

	alerts  []Alert
	alerted map[string]bool // "<date>/<kind>"

	clientGoal  int
	revenueGoal int64
	notify      func(message string)
}

// NewTracker builds a tracker with the given daily goals. notify, when
// non-nil, is called once per crossed goal per day (callers send email from
// it; it runs on the tracking goroutine's time, so keep it cheap or spawn).
func NewTracker(clientGoal int, revenueGoal int64, notify func(string)) *Tracker {
	return &Tracker{
		daily:       make(map[string]*bucket),
		weekly:      make(map[string]*bucket),
		monthly:     make(map[string]*bucket),
		yearly:      make(map[string]*bucket),
		products:    make(map[uint]*productStats),
		alerted:     make(map[string]bool),
		clientGoal:  clientGoal,
		revenueGoal: revenueGoal,
		notify:      notify,
	}
}

func dayKey(t time.Time) string   { return t.Format("2006-01-02") }
func monthKey(t time.Time) string { return t.Format("2006-01") }
func yearKey(t time.Time) string  { return t.Format("2006") }

func weekKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// Track buckets one completed sale into every period.
func (tr *Tracker) Track(sale Sale, at time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for _, key := range []struct {
		m map[string]*bucket
		k string
	}{
		{tr.daily, dayKey(at)},
		{tr.weekly, weekKey(at)},
		{tr.monthly, monthKey(at)},
		{tr.yearly, yearKey(at)},
	} {
		b, ok := key.m[key.k]
		if !ok {
			b = newBucket()
			key.m[key.k] = b
		}
		b.Revenue += sale.Total
		b.Orders++
		b.clients[sale.UserID] = struct{}{}
	}

	for productID, amount := range sale.Products {
		ps, ok := tr.products[productID]
		if !ok {
			ps = &productStats{}
			tr.products[productID] = ps
		}
		ps.Revenue += amount
		ps.Orders++
	}

	tr.checkGoals(dayKey(at))
}

func (tr *Tracker) checkGoals(day string) {
	b := tr.daily[day]

	if len(b.clients) >= tr.clientGoal && !tr.alerted[day+"/clients"] {
		tr.alerted[day+"/clients"] = true
		tr.addAlert(day, "clients", fmt.Sprintf("daily client goal reached: %d clients on %s", len(b.clients), day))
	}
	if b.Revenue >= tr.revenueGoal && !tr.alerted[day+"/revenue"] {
		tr.alerted[day+"/revenue"] = true
		tr.addAlert(day, "revenue", fmt.Sprintf("daily revenue goal reached: R%.2f on %s", float64(b.Revenue)/100, day))
	}
}

func (tr *Tracker) addAlert(day, kind, message string) {
	alert := Alert{Date: day, Kind: kind, Message: message, At: time.Now()}
	tr.alerts = append(tr.alerts, alert)
	zap.L().Info("revenue alert", zap.String("kind", kind), zap.String("message", message))
	if tr.notify != nil {
		tr.notify(message)
	}
}

// PeriodSummary is the rollup for one bucket key.
type PeriodSummary struct {
	Revenue int64 `json:"revenue"`
	Orders  int   `json:"orders"`
	Clients int   `json:"clients"`
}

// ProductSummary is the per-product rollup.
type ProductSummary struct {
	ProductID uint  `json:"product_id"`
	Revenue   int64 `json:"revenue"`
	Orders    int   `json:"orders"`
}

// Summary is the report walked out of the in-memory maps.
type Summary struct {
	Today     PeriodSummary    `json:"today"`
	ThisWeek  PeriodSummary    `json:"this_week"`
	ThisMonth PeriodSummary    `json:"this_month"`
	ThisYear  PeriodSummary    `json:"this_year"`
	Products  []ProductSummary `json:"products"`
	Alerts    []Alert          `json:"alerts"`
}

func summarize(b *bucket) PeriodSummary {
	if b == nil {
		return PeriodSummary{}
	}
	return PeriodSummary{Revenue: b.Revenue, Orders: b.Orders, Clients: len(b.clients)}
}

// Metrics reports the current rollups.
func (tr *Tracker) Metrics(now time.Time) Summary {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	s := Summary{
		Today:     summarize(tr.daily[dayKey(now)]),
		ThisWeek:  summarize(tr.weekly[weekKey(now)]),
		ThisMonth: summarize(tr.monthly[monthKey(now)]),
		ThisYear:  summarize(tr.yearly[yearKey(now)]),
		Alerts:    append([]Alert(nil), tr.alerts...),
	}
	for id, ps := range tr.products {
		s.Products = append(s.Products, ProductSummary{ProductID: id, Revenue: ps.Revenue, Orders: ps.Orders})
	}
	return s
}

// DailyRevenue returns the revenue bucketed for the given day.
func (tr *Tracker) DailyRevenue(at time.Time) int64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.daily[dayKey(at)].revenueOrZero()
}

// DailyClients returns the distinct purchasing clients for the given day.
func (tr *Tracker) DailyClients(at time.Time) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	b := tr.daily[dayKey(at)]
	if b == nil {
		return 0
	}
	return len(b.clients)
}

func (b *bucket) revenueOrZero() int64 {
	if b == nil {
		return 0
	}
	return b.Revenue
}

// Projection is the trivial linear-growth forecast: the day-over-day growth
// rate, clamped to [minGrowthRate, maxGrowthRate], applied geometrically.
type Projection struct {
	GrowthRate string  `json:"growth_rate"`
	Days       []int64 `json:"days"` // projected revenue per future day, cents
}

// Project forecasts revenue for the next n days from today and yesterday.
func (tr *Tracker) Project(now time.Time, n int) Projection {
	tr.mu.Lock()
	today := tr.daily[dayKey(now)].revenueOrZero()
	yesterday := tr.daily[dayKey(now.AddDate(0, 0, -1))].revenueOrZero()
	tr.mu.Unlock()

	rate := decimal.Zero
	if yesterday > 0 {
		rate = decimal.NewFromInt(today - yesterday).Div(decimal.NewFromInt(yesterday))
	}
	if rate.LessThan(minGrowthRate) {
		rate = minGrowthRate
	}
	if rate.GreaterThan(maxGrowthRate) {
		rate = maxGrowthRate
	}

	factor := decimal.NewFromInt(1).Add(rate)
	projected := decimal.NewFromInt(today)

	p := Projection{GrowthRate: rate.StringFixed(4)}
	for i := 0; i < n; i++ {
		projected = projected.Mul(factor)
		p.Days = append(p.Days, projected.Round(0).IntPart())
	}
	return p
}
