package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CamuPos/app/config"
	"CamuPos/app/models"
	"CamuPos/app/store"
)

// Period selects the window a report covers
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod reads a query value, defaulting to today
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", raw)
}

// Contains reports whether t falls inside the period ending at now.
// Week is the last 7 days; month is the calendar month of now.
func (p Period) Contains(t, now time.Time) bool {
	t = t.In(now.Location())
	switch p {
	case PeriodDay:
		y1, m1, d1 := t.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodWeek:
		return !t.Before(now.AddDate(0, 0, -7))
	case PeriodMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	}
	return true
}

// Founder is one profit share holder
type Founder struct {
	Name  string
	Share decimal.Decimal
}

// Founders is the profit split between the three owners
var Founders = []Founder{
	{Name: "Reza", Share: decimal.RequireFromString("0.30")},
	{Name: "Andris", Share: decimal.RequireFromString("0.35")},
	{Name: "Lasulika", Share: decimal.RequireFromString("0.35")},
}

// FounderShare is one owner's part of net profit
type FounderShare struct {
	Name    string        `json:"name"`
	Percent string        `json:"percent"`
	Amount  models.Rupiah `json:"amount"`
}

// Summary is the profit picture for one period
type Summary struct {
	Period            Period                                 `json:"period"`
	OrderCount        int                                    `json:"orderCount"`
	Revenue           models.Rupiah                          `json:"revenue"`
	TotalCost         models.Rupiah                          `json:"totalCost"`
	GrossProfit       models.Rupiah                          `json:"grossProfit"`
	OperatingExpenses models.Rupiah                          `json:"operatingExpenses"`
	NetProfit         models.Rupiah                          `json:"netProfit"`
	AvgOrderValue     models.Rupiah                          `json:"avgOrderValue"`
	CapitalInjected   models.Rupiah                          `json:"capitalInjected"`
	CapitalSpent      models.Rupiah                          `json:"capitalSpent"`
	UnspentCapital    models.Rupiah                          `json:"unspentCapital"`
	ByPayment         map[models.PaymentMethod]models.Rupiah `json:"byPayment"`
	Founders          []FounderShare                         `json:"founders"`
}

// ProductMargin is the unit economics of one product
type ProductMargin struct {
	ID            models.FlexID `json:"id"`
	Name          string        `json:"name"`
	Price         models.Rupiah `json:"price"`
	Cost          models.Rupiah `json:"cost"`
	Margin        models.Rupiah `json:"margin"`
	MarginPct     float64       `json:"marginPct"`
	ItemBEP       int64         `json:"itemBep"`
	MonthlyProfit models.Rupiah `json:"monthlyProfit"`
}

// Projection is a 30-day outlook at a constant daily volume
type Projection struct {
	Items        int64         `json:"items"`
	Revenue      models.Rupiah `json:"revenue"`
	VariableCost models.Rupiah `json:"variableCost"`
	GrossProfit  models.Rupiah `json:"grossProfit"`
	NetProfit    models.Rupiah `json:"netProfit"`
}

// BreakEven is the break-even analysis of the current catalog
type BreakEven struct {
	FixedCosts      models.Rupiah   `json:"fixedCosts"`
	AvgPrice        models.Rupiah   `json:"avgPrice"`
	AvgCost         models.Rupiah   `json:"avgCost"`
	AvgMargin       models.Rupiah   `json:"avgMargin"`
	DailySales      int64           `json:"dailySales"`
	Units           int64           `json:"bepUnits"`
	Revenue         models.Rupiah   `json:"bepRevenue"`
	DaysToBreakEven int64           `json:"daysToBreakEven"`
	Monthly         Projection      `json:"monthly"`
	Products        []ProductMargin `json:"products"`
}

// DailyReport is one row of the daily export
type DailyReport struct {
	Date       string        `json:"date"`
	Orders     int           `json:"orders"`
	Items      int           `json:"items"`
	Revenue    models.Rupiah `json:"revenue"`
	Cost       models.Rupiah `json:"cost"`
	Profit     models.Rupiah `json:"profit"`
	Expenses   models.Rupiah `json:"expenses"`
	NetProfit  models.Rupiah `json:"netProfit"`
	Cash       models.Rupiah `json:"cash"`
	QRIS       models.Rupiah `json:"qris"`
	TopProduct string        `json:"topProduct"`
}

// StateSource yields the current snapshot. *Dispatcher satisfies it.
type StateSource interface {
	State() store.State
}

// ReportService derives reports from the live state. It never mutates it.
type ReportService struct {
	source     StateSource
	fixedCosts []config.FixedCost
	location   *time.Location
	now        func() time.Time
}

// NewReportService creates a report service
func NewReportService(source StateSource, cfg config.ReportsConfig) *ReportService {
	costs := cfg.FixedCosts
	if len(costs) == 0 {
		costs = config.DefaultFixedCosts()
	}
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.Local
	}
	return &ReportService{source: source, fixedCosts: costs, location: loc, now: time.Now}
}

func (s *ReportService) today() time.Time {
	return s.now().In(s.location)
}

func rupiah(d decimal.Decimal) models.Rupiah {
	return models.Rupiah(d.Round(0).IntPart())
}

// expenseTime reads the YYYY-MM-DD date in loc, falling back to CreatedAt
func expenseTime(e models.Expense, loc *time.Location) time.Time {
	if t, err := time.ParseInLocation("2006-01-02", e.Date, loc); err == nil {
		return t
	}
	return e.CreatedAt
}

// Summary computes the profit picture for p
func (s *ReportService) Summary(p Period) Summary {
	return Summarize(s.source.State(), p, s.today())
}

// Summarize is the pure form of Summary. Capital figures are balances and
// ignore the period.
func Summarize(st store.State, p Period, now time.Time) Summary {
	sum := Summary{Period: p, ByPayment: map[models.PaymentMethod]models.Rupiah{}}
	for _, o := range st.Orders() {
		if !p.Contains(o.CreatedAt, now) {
			continue
		}
		sum.OrderCount++
		sum.Revenue += o.Total
		sum.TotalCost += o.TotalCost
		sum.GrossProfit += o.Profit
		sum.ByPayment[o.PaymentMethod] += o.Total
	}

	for _, e := range st.Expenses {
		switch {
		case e.IsCapital():
			sum.CapitalInjected += e.Amount
		case e.SpendsCapital():
			sum.CapitalSpent += e.Amount
		}
		if e.IsOperating() && p.Contains(expenseTime(e, now.Location()), now) {
			sum.OperatingExpenses += e.Amount
		}
	}
	sum.UnspentCapital = sum.CapitalInjected - sum.CapitalSpent
	sum.NetProfit = sum.GrossProfit - sum.OperatingExpenses
	if sum.OrderCount > 0 {
		sum.AvgOrderValue = rupiah(decimal.NewFromInt(sum.Revenue.Int64()).Div(decimal.NewFromInt(int64(sum.OrderCount))))
	}
	sum.Founders = SplitProfit(sum.NetProfit)
	return sum
}

// SplitProfit divides net profit between the founders, rounded to whole rupiah
func SplitProfit(net models.Rupiah) []FounderShare {
	total := decimal.NewFromInt(net.Int64())
	shares := make([]FounderShare, 0, len(Founders))
	for _, f := range Founders {
		shares = append(shares, FounderShare{
			Name:    f.Name,
			Percent: f.Share.Shift(2).String() + "%",
			Amount:  rupiah(total.Mul(f.Share)),
		})
	}
	return shares
}

// BreakEven analyses the current catalog at dailySales portions a day
func (s *ReportService) BreakEven(dailySales int64) BreakEven {
	return ComputeBreakEven(s.source.State().Products, s.fixedCosts, dailySales)
}

// ComputeBreakEven is the pure form of BreakEven
func ComputeBreakEven(products []models.Product, fixedCosts []config.FixedCost, dailySales int64) BreakEven {
	if dailySales < 0 {
		dailySales = 0
	}
	fixed := decimal.Zero
	for _, c := range fixedCosts {
		fixed = fixed.Add(decimal.NewFromInt(c.Amount))
	}

	n := decimal.NewFromInt(int64(len(products)))
	avgPrice, avgCost := decimal.Zero, decimal.Zero
	if len(products) > 0 {
		for _, p := range products {
			avgPrice = avgPrice.Add(decimal.NewFromInt(p.Price.Int64()))
			avgCost = avgCost.Add(decimal.NewFromInt(p.Cost.Int64()))
		}
		avgPrice = avgPrice.Div(n)
		avgCost = avgCost.Div(n)
	}
	margin := avgPrice.Sub(avgCost)

	be := BreakEven{
		FixedCosts: rupiah(fixed),
		AvgPrice:   rupiah(avgPrice),
		AvgCost:    rupiah(avgCost),
		AvgMargin:  rupiah(margin),
		DailySales: dailySales,
	}
	if margin.IsPositive() {
		be.Units = fixed.Div(margin).Ceil().IntPart()
	}
	be.Revenue = rupiah(decimal.NewFromInt(be.Units).Mul(avgPrice))
	if dailySales > 0 {
		be.DaysToBreakEven = decimal.NewFromInt(be.Units).Div(decimal.NewFromInt(dailySales)).Ceil().IntPart()
	}

	items := decimal.NewFromInt(dailySales * 30)
	revenue := items.Mul(avgPrice)
	variable := items.Mul(avgCost)
	be.Monthly = Projection{
		Items:        dailySales * 30,
		Revenue:      rupiah(revenue),
		VariableCost: rupiah(variable),
		GrossProfit:  rupiah(revenue.Sub(variable)),
		NetProfit:    rupiah(revenue.Sub(variable).Sub(fixed)),
	}

	be.Products = make([]ProductMargin, 0, len(products))
	for _, p := range products {
		m := ProductMargin{ID: p.ID, Name: p.Name, Price: p.Price, Cost: p.Cost, Margin: p.Margin()}
		unitMargin := decimal.NewFromInt(m.Margin.Int64())
		if p.Price > 0 {
			m.MarginPct = unitMargin.Div(decimal.NewFromInt(p.Price.Int64())).Shift(2).Round(1).InexactFloat64()
		}
		if fixed.IsPositive() && unitMargin.IsPositive() {
			m.ItemBEP = fixed.Div(n).Div(unitMargin).Ceil().IntPart()
		}
		m.MonthlyProfit = rupiah(unitMargin.Mul(items.Div(n).Ceil()))
		be.Products = append(be.Products, m)
	}
	sort.SliceStable(be.Products, func(i, j int) bool {
		return be.Products[i].MarginPct > be.Products[j].MarginPct
	})
	return be
}

// Daily builds the export row for the given day
func (s *ReportService) Daily(day time.Time) DailyReport {
	return BuildDailyReport(s.source.State(), day.In(s.location))
}

// BuildDailyReport is the pure form of Daily
func BuildDailyReport(st store.State, day time.Time) DailyReport {
	r := DailyReport{Date: day.Format("2006-01-02")}
	sold := map[string]int{}
	for _, o := range st.Orders() {
		if !PeriodDay.Contains(o.CreatedAt, day) {
			continue
		}
		r.Orders++
		r.Revenue += o.Total
		r.Cost += o.TotalCost
		r.Profit += o.Profit
		switch o.PaymentMethod {
		case models.PaymentQRIS:
			r.QRIS += o.Total
		case models.PaymentCash:
			r.Cash += o.Total
		}
		for _, l := range o.Items {
			r.Items += l.Qty
			sold[l.Name] += l.Qty
		}
	}
	for _, e := range st.Expenses {
		if e.IsOperating() && e.Date == r.Date {
			r.Expenses += e.Amount
		}
	}
	r.NetProfit = r.Profit - r.Expenses

	best := 0
	for name, qty := range sold {
		if qty > best || (qty == best && name < r.TopProduct) {
			best, r.TopProduct = qty, name
		}
	}
	return r
}
