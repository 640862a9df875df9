package billing

import (
	"sort"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationInput is everything the debt allocator needs for one booking.
// AggregateSale, when set for a currency, replaces the per-service sale sum
// as that currency's sale basis.
type AllocationInput struct {
	Mode          BreakdownMode
	Services      []Service
	Receipts      []Receipt
	OperatorDues  []OperatorDue
	AggregateSale map[string]decimal.Decimal
}

// DebtRow is the client-side balance of one service. Debt is Sale minus
// Paid; a negative debt is an overpayment.
type DebtRow struct {
	ServiceID string
	Currency  string
	Sale      decimal.Decimal
	Paid      decimal.Decimal
	Debt      decimal.Decimal
}

// CurrencyDebt is the client-side balance of a currency. Paid includes the
// unallocated and orphaned buckets.
type CurrencyDebt struct {
	Currency     string
	Sale         decimal.Decimal
	Paid         decimal.Decimal
	Unallocated  decimal.Decimal
	Orphaned     decimal.Decimal
	Debt         decimal.Decimal
	OperatorDebt decimal.Decimal
}

// ReceiptApplication records where one receipt's credit and fee landed
type ReceiptApplication struct {
	ReceiptID   string
	Currency    string
	Credit      decimal.Decimal
	Fee         decimal.Decimal
	Explicit    bool
	Services    []ServiceAllocation
	Unallocated decimal.Decimal
	Orphaned    decimal.Decimal
}

// Total returns everything the receipt credited across all buckets
func (a ReceiptApplication) Total() decimal.Decimal {
	total := a.Unallocated.Add(a.Orphaned)
	for _, s := range a.Services {
		total = total.Add(s.Amount)
	}
	return total
}

// AllocationResult is the output of Allocate
type AllocationResult struct {
	Rows                   []DebtRow
	ByCurrency             map[string]CurrencyDebt
	Unallocated            map[string]decimal.Decimal
	Orphaned               map[string]decimal.Decimal
	OperatorDebt           []OperatorDebtLine
	OperatorDebtByCurrency map[string]decimal.Decimal
	Applications           []ReceiptApplication
}

// RowsFor returns the debt rows of one currency in service order
func (r AllocationResult) RowsFor(currency string) []DebtRow {
	rows := make([]DebtRow, 0)
	for _, row := range r.Rows {
		if row.Currency == currency {
			rows = append(rows, row)
		}
	}
	return rows
}

// Currencies returns every currency with a sale, a payment or a pending
// operator due, sorted
func (r AllocationResult) Currencies() []string {
	out := make([]string, 0, len(r.ByCurrency))
	for cur := range r.ByCurrency {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

type allocator struct {
	mode        BreakdownMode
	services    []Service
	index       map[string]int
	paid        []decimal.Decimal
	unallocated map[string]decimal.Decimal
	orphaned    map[string]decimal.Decimal
}

// Allocate attributes receipts to services per currency and derives debt.
// Explicit allocations are honoured exactly; other receipts are spread over
// eligible services by sale basis. Money is never dropped: what cannot land
// on a service goes to the unallocated or orphaned bucket of its currency.
func Allocate(in AllocationInput) AllocationResult {
	a := &allocator{
		mode:        in.Mode,
		services:    normalizeServices(in.Services),
		index:       make(map[string]int),
		unallocated: make(map[string]decimal.Decimal),
		orphaned:    make(map[string]decimal.Decimal),
	}
	a.paid = make([]decimal.Decimal, len(a.services))
	for i, svc := range a.services {
		a.paid[i] = decimal.Zero
		if _, dup := a.index[svc.ID]; !dup {
			a.index[svc.ID] = i
		}
	}

	result := AllocationResult{
		ByCurrency:   make(map[string]CurrencyDebt),
		Applications: make([]ReceiptApplication, 0, len(in.Receipts)),
	}
	for _, receipt := range in.Receipts {
		app, ok := a.apply(receipt)
		if !ok {
			continue
		}
		result.Applications = append(result.Applications, app)
	}

	result.Rows = make([]DebtRow, len(a.services))
	for i, svc := range a.services {
		sale := svc.SaleBasis(a.mode)
		result.Rows[i] = DebtRow{
			ServiceID: svc.ID,
			Currency:  svc.Currency,
			Sale:      sale,
			Paid:      a.paid[i],
			Debt:      sale.Sub(a.paid[i]),
		}
	}

	result.Unallocated = a.unallocated
	result.Orphaned = a.orphaned
	result.OperatorDebt = OperatorDebt(in.OperatorDues)
	result.OperatorDebtByCurrency = OperatorDebtByCurrency(result.OperatorDebt)

	for _, row := range result.Rows {
		cd := result.currency(row.Currency)
		cd.Sale = cd.Sale.Add(row.Sale)
		cd.Paid = cd.Paid.Add(row.Paid)
		result.ByCurrency[row.Currency] = cd
	}
	for cur, amount := range a.unallocated {
		cd := result.currency(cur)
		cd.Unallocated = amount
		cd.Paid = cd.Paid.Add(amount)
		result.ByCurrency[cur] = cd
	}
	for cur, amount := range a.orphaned {
		cd := result.currency(cur)
		cd.Orphaned = amount
		cd.Paid = cd.Paid.Add(amount)
		result.ByCurrency[cur] = cd
	}
	for cur, amount := range result.OperatorDebtByCurrency {
		cd := result.currency(cur)
		cd.OperatorDebt = amount
		result.ByCurrency[cur] = cd
	}
	for cur, sale := range in.AggregateSale {
		cur = valueobject.NormalizeCurrency(cur)
		cd, ok := result.ByCurrency[cur]
		if !ok {
			continue
		}
		cd.Sale = sale
		result.ByCurrency[cur] = cd
	}
	for cur, cd := range result.ByCurrency {
		cd.Debt = cd.Sale.Sub(cd.Paid)
		result.ByCurrency[cur] = cd
	}
	return result
}

func (r AllocationResult) currency(cur string) CurrencyDebt {
	if cd, ok := r.ByCurrency[cur]; ok {
		return cd
	}
	return CurrencyDebt{
		Currency:     cur,
		Sale:         decimal.Zero,
		Paid:         decimal.Zero,
		Unallocated:  decimal.Zero,
		Orphaned:     decimal.Zero,
		Debt:         decimal.Zero,
		OperatorDebt: decimal.Zero,
	}
}

func (a *allocator) apply(r Receipt) (ReceiptApplication, bool) {
	credit, cur := r.Credit()
	cur = valueobject.NormalizeCurrency(cur)
	if cur == "" {
		return ReceiptApplication{}, false
	}
	app := ReceiptApplication{
		ReceiptID:   r.ID,
		Currency:    cur,
		Credit:      credit,
		Fee:         r.FeeAmount,
		Explicit:    r.HasExplicitAllocations(),
		Services:    []ServiceAllocation{},
		Unallocated: decimal.Zero,
		Orphaned:    decimal.Zero,
	}
	if app.Explicit {
		a.applyExplicit(r, &app)
	} else {
		a.applyProportional(r, &app)
	}
	return app, true
}

type bucketKind int

const (
	bucketService bucketKind = iota
	bucketUnallocated
	bucketOrphaned
)

type bucket struct {
	kind   bucketKind
	idx    int
	amount decimal.Decimal
}

func (a *allocator) applyExplicit(r Receipt, app *ReceiptApplication) {
	buckets := make([]bucket, 0, len(r.Allocations)+1)
	allocated := decimal.Zero
	for _, alloc := range r.Allocations {
		allocated = allocated.Add(alloc.Amount)
		idx, ok := a.index[alloc.ServiceID]
		if !ok || a.services[idx].Currency != app.Currency {
			buckets = append(buckets, bucket{kind: bucketOrphaned, amount: alloc.Amount})
			continue
		}
		buckets = append(buckets, bucket{kind: bucketService, idx: idx, amount: alloc.Amount})
	}
	if remainder := app.Credit.Sub(allocated); !remainder.IsZero() {
		buckets = append(buckets, bucket{kind: bucketUnallocated, amount: remainder})
	}

	if !app.Fee.IsZero() {
		weights := make([]decimal.Decimal, len(buckets))
		for i, b := range buckets {
			weights[i] = b.amount
		}
		if sumDecimals(positive(weights)).IsZero() {
			buckets = append(buckets, bucket{kind: bucketUnallocated, amount: app.Fee})
		} else {
			for i, share := range Distribute(app.Fee, weights) {
				buckets[i].amount = buckets[i].amount.Add(share)
			}
		}
	}

	a.commit(buckets, app)
}

func (a *allocator) applyProportional(r Receipt, app *ReceiptApplication) {
	total := app.Credit.Add(app.Fee)
	eligible := a.eligible(r.ServiceIDs, app.Currency)
	if len(eligible) == 0 {
		a.commit([]bucket{{kind: bucketUnallocated, amount: total}}, app)
		return
	}

	weights := make([]decimal.Decimal, len(eligible))
	for i, idx := range eligible {
		weights[i] = a.services[idx].SaleBasis(a.mode)
	}
	shares := Distribute(total, weights)

	buckets := make([]bucket, len(eligible))
	for i, idx := range eligible {
		buckets[i] = bucket{kind: bucketService, idx: idx, amount: shares[i]}
	}
	a.commit(buckets, app)
}

// eligible lists services in the receipt's credit currency, narrowed to the
// receipt's scope when it has one
func (a *allocator) eligible(scope []string, currency string) []int {
	var allowed map[string]bool
	if len(scope) > 0 {
		allowed = make(map[string]bool, len(scope))
		for _, id := range scope {
			allowed[id] = true
		}
	}
	out := make([]int, 0)
	for i, svc := range a.services {
		if svc.Currency != currency {
			continue
		}
		if allowed != nil && !allowed[svc.ID] {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (a *allocator) commit(buckets []bucket, app *ReceiptApplication) {
	perService := make(map[int]decimal.Decimal)
	order := make([]int, 0)
	for _, b := range buckets {
		switch b.kind {
		case bucketService:
			if _, seen := perService[b.idx]; !seen {
				order = append(order, b.idx)
			}
			perService[b.idx] = perService[b.idx].Add(b.amount)
			a.paid[b.idx] = a.paid[b.idx].Add(b.amount)
		case bucketUnallocated:
			app.Unallocated = app.Unallocated.Add(b.amount)
			a.unallocated[app.Currency] = a.unallocated[app.Currency].Add(b.amount)
		case bucketOrphaned:
			app.Orphaned = app.Orphaned.Add(b.amount)
			a.orphaned[app.Currency] = a.orphaned[app.Currency].Add(b.amount)
		}
	}
	for _, idx := range order {
		app.Services = append(app.Services, ServiceAllocation{
			ServiceID: a.services[idx].ID,
			Amount:    perService[idx],
		})
	}
}

func normalizeServices(services []Service) []Service {
	out := make([]Service, len(services))
	for i, svc := range services {
		svc.Currency = valueobject.NormalizeCurrency(svc.Currency)
		out[i] = svc
	}
	return out
}

func positive(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.IsPositive() {
			out = append(out, v)
		}
	}
	return out
}
