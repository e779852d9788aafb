package sheets

import (
	"context"
	"time"

	"catat/internal/core"
)

// EntryAppender mirrors one recorded ledger entry as a spreadsheet row.
type EntryAppender interface {
	AppendEntry(ctx context.Context, e core.EntryRecorded) (rowRef string, err error)
}

// Column order of a mirrored row.
const (
	ColumnDate = iota
	ColumnKind
	ColumnAmount
	ColumnSender
)

// KindLabel is the value written in the kind column.
func KindLabel(k core.EntryKind) string {
	switch k {
	case core.Income:
		return "pemasukan"
	case core.Expense:
		return "pengeluaran"
	}
	return string(k)
}

// Row renders e as [tanggal RFC3339, jenis, jumlah, pengirim].
func Row(e core.EntryRecorded) []any {
	return []any{
		e.RecordedAt.Format(time.RFC3339),
		KindLabel(e.Kind),
		e.Amount,
		e.Sender,
	}
}
