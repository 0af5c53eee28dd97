package payroll

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type fakePayrollRepo struct {
	mu      sync.Mutex
	records map[string]payroll.PayrollRecord

	updateHook func(record payroll.PayrollRecord)
}

func newFakePayrollRepo() *fakePayrollRepo {
	return &fakePayrollRepo{records: make(map[string]payroll.PayrollRecord)}
}

func (f *fakePayrollRepo) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.records {
		if r.EmployeeID == record.EmployeeID && r.PeriodStart.Equal(record.PeriodStart) && r.PeriodEnd.Equal(record.PeriodEnd) {
			return payroll.PayrollRecord{}, payroll.ErrRecordAlreadyExists
		}
	}
	record.Version = 1
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	f.records[record.ID] = record
	return record, nil
}

func (f *fakePayrollRepo) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakePayrollRepo) GetByEmployeePeriod(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.records {
		if r.EmployeeID == employeeID && r.PeriodStart.Equal(periodStart) && r.PeriodEnd.Equal(periodEnd) {
			return r, nil
		}
	}
	return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
}

func (f *fakePayrollRepo) GetByPaymentReference(ctx context.Context, referenceID string) (payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.records {
		if r.Payment.ReferenceID != nil && *r.Payment.ReferenceID == referenceID {
			return r, nil
		}
	}
	return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
}

func (f *fakePayrollRepo) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []payroll.PayrollRecord
	for _, r := range f.records {
		if filter.EmployeeID != nil && r.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && string(r.PaymentStatus) != *filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePayrollRepo) ListByStatus(ctx context.Context, status payroll.PaymentStatus, limit int) ([]payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []payroll.PayrollRecord
	for _, r := range f.records {
		if r.PaymentStatus == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePayrollRepo) Update(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	if f.updateHook != nil {
		f.updateHook(record)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.records[record.ID]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
	}
	if stored.Version != record.Version {
		return payroll.PayrollRecord{}, payroll.ErrConcurrentModification
	}
	record.Version++
	record.UpdatedAt = time.Now()
	f.records[record.ID] = record
	return record, nil
}

func (f *fakePayrollRepo) GetStatistics(ctx context.Context, periodStart, periodEnd time.Time) (payroll.PayrollStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := payroll.PayrollStatistics{
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		TotalGrossPay:    decimal.Zero,
		TotalDeductions:  decimal.Zero,
		TotalNetPay:      decimal.Zero,
		TotalOvertimePay: decimal.Zero,
		StatusCounts:     make(map[payroll.PaymentStatus]int),
	}
	for _, r := range f.records {
		if r.PeriodStart.Before(periodStart) || r.PeriodEnd.After(periodEnd) {
			continue
		}
		stats.TotalRecords++
		stats.TotalGrossPay = stats.TotalGrossPay.Add(r.Salary.GrossPay)
		stats.TotalDeductions = stats.TotalDeductions.Add(r.Deductions.TotalDeductions)
		stats.TotalNetPay = stats.TotalNetPay.Add(r.NetPay)
		stats.TotalOvertimePay = stats.TotalOvertimePay.Add(r.Salary.TotalOvertimePay)
		stats.StatusCounts[r.PaymentStatus]++
		if r.OvertimeApproval.IsPending() {
			stats.OvertimeApprovalPending++
		}
	}
	return stats, nil
}

func (f *fakePayrollRepo) put(record payroll.PayrollRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.Version == 0 {
		record.Version = 1
	}
	f.records[record.ID] = record
}

type fakeDirectory struct {
	profiles map[string]payroll.CompensationProfile
	order    []string
	listErr  error
}

func newFakeDirectory(profiles ...payroll.CompensationProfile) *fakeDirectory {
	d := &fakeDirectory{profiles: make(map[string]payroll.CompensationProfile)}
	for _, p := range profiles {
		d.profiles[p.EmployeeID] = p
		d.order = append(d.order, p.EmployeeID)
	}
	return d
}

func (d *fakeDirectory) ListActiveEmployees(ctx context.Context) ([]payroll.CompensationProfile, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	var out []payroll.CompensationProfile
	for _, id := range d.order {
		if p := d.profiles[id]; p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetCompensationProfile(ctx context.Context, employeeID string) (payroll.CompensationProfile, error) {
	p, ok := d.profiles[employeeID]
	if !ok {
		return payroll.CompensationProfile{}, payroll.ErrEmployeeNotFound
	}
	return p, nil
}

type fakeAttendance struct {
	summaries map[string]payroll.AttendanceSummary
	err       error
}

func (a *fakeAttendance) GetAttendanceSummary(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (payroll.AttendanceSummary, error) {
	if a.err != nil {
		return payroll.AttendanceSummary{}, a.err
	}
	s, ok := a.summaries[employeeID]
	if !ok {
		return payroll.AttendanceSummary{TotalHours: decimal.Zero, RegularHours: decimal.Zero, OvertimeHours: decimal.Zero}, nil
	}
	return s, nil
}

type fakeLeaves struct {
	days int
	err  error
}

func (l *fakeLeaves) CountApprovedLeaveDays(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (int, error) {
	return l.days, l.err
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payroll.PaymentRequest

	createFn func(req payroll.PaymentRequest) (payroll.PaymentResult, error)
	getFn    func(gatewayReference string) (payroll.PaymentResult, error)
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req payroll.PaymentRequest) (payroll.PaymentResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.createFn != nil {
		return g.createFn(req)
	}
	return payroll.PaymentResult{ReferenceID: req.ReferenceID, GatewayReference: "gw-" + req.ReferenceID, Status: payroll.GatewayStatusSucceeded}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, gatewayReference string) (payroll.PaymentResult, error) {
	if g.getFn != nil {
		return g.getFn(gatewayReference)
	}
	return payroll.PaymentResult{}, errors.New("not implemented")
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []payroll.Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, event payroll.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *fakeNotifier) types() []payroll.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]payroll.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}
