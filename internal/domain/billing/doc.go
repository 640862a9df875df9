// Package billing is the pure computation core of the agency back office.
//
// It turns a booking's services, receipts and operator dues into per-currency
// summaries:
//   - Breakdown: taxable bases, VAT on commission and net commission, in
//     itemized (auto) or lump-sum (manual) mode
//   - Adjustments: configured percent or fixed deductions over sale, cost or margin
//   - Allocation: receipts attributed to services with unallocated and orphaned
//     remainders kept per currency
//   - Summary: everything above merged with the commission resolution of
//     package commission
//
// Money is decimal.Decimal throughout and is never rounded here; callers round
// at presentation time. Nothing in this package performs I/O.
package billing
