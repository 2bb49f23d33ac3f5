package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supplierRow(material, supplier string) Row {
	return Row{
		"Material":                     Value(material),
		"Soma de Saldo":                "1",
		"Último UM pedido":             "UN",
		"Data de remessa mais recente": "",
		"Primeiro Fornecedor":          Value(supplier),
	}
}

func TestEditCell_ChangesOnlyTargetCell(t *testing.T) {
	eng, path := loadedEngine(t)
	_, err := eng.RecordSourceInfo(path)
	require.NoError(t, err)

	before := eng.Snapshot()
	require.NoError(t, eng.EditCell(2, "Primeiro Fornecedor", "Gamma Novo"))
	after := eng.Snapshot()

	require.Equal(t, before.Table.Columns, after.Table.Columns)
	require.Equal(t, before.Table.RowCount(), after.Table.RowCount())
	for i := range before.Table.Rows {
		for _, col := range before.Table.Columns {
			got, _ := after.Table.Cell(i, col)
			want, _ := before.Table.Cell(i, col)
			if i == 2 && col == "Primeiro Fornecedor" {
				assert.Equal(t, Value("Gamma Novo"), got)
				continue
			}
			assert.Equal(t, want, got, "row %d column %q", i, col)
		}
	}
	assert.Equal(t, before.Info, after.Info)
}

func TestEditCell_StoresTextVerbatim(t *testing.T) {
	eng, _ := loadedEngine(t)

	require.NoError(t, eng.EditCell(0, "Soma de Saldo", "  1,500.00 "))

	tbl, _ := eng.Table()
	v, _ := tbl.Cell(0, "Soma de Saldo")
	assert.Equal(t, Value("  1,500.00 "), v)
}

func TestEditCell_Errors(t *testing.T) {
	eng, _ := loadedEngine(t)
	before, _ := eng.Table()

	tests := []struct {
		name     string
		row      int
		column   string
		wantKind error
	}{
		{name: "negative row", row: -1, column: "Material", wantKind: ErrOutOfRange},
		{name: "row past end", row: 6, column: "Material", wantKind: ErrOutOfRange},
		{name: "unknown column", row: 0, column: "Preço", wantKind: ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.EditCell(tt.row, tt.column, "x")
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantKind, KindOf(err))

			after, _ := eng.Table()
			assert.Equal(t, before, after)
		})
	}
}

func TestEditCell_NoData(t *testing.T) {
	err := NewEngine(Config{}).EditCell(0, "Material", "x")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAddRows_AppendsInOrder(t *testing.T) {
	eng, _ := loadedEngine(t)

	require.NoError(t, eng.AddRows([]Row{
		supplierRow("M-200", "Eta"),
		supplierRow("M-201", "Theta"),
	}))

	got := materials(t, eng)
	assert.Equal(t, []string{"M-100", "M-101", "M-102", "M-103", "M-104", "M-105", "M-200", "M-201"}, got)

	tbl, _ := eng.Table()
	for _, r := range tbl.Rows {
		assert.True(t, tbl.Columns.Conforms(r))
	}
}

func TestAddRows_CopiesInput(t *testing.T) {
	eng, _ := loadedEngine(t)
	r := supplierRow("M-200", "Eta")

	require.NoError(t, eng.AddRows([]Row{r}))
	r["Material"] = "changed"

	assert.Equal(t, "M-200", materials(t, eng)[6])
}

func TestAddRows_SchemaMismatchAppendsNothing(t *testing.T) {
	eng, _ := loadedEngine(t)
	before, _ := eng.Table()
	rev := eng.Version().Revision

	missing := supplierRow("M-201", "Theta")
	delete(missing, "Soma de Saldo")
	extra := supplierRow("M-202", "Iota")
	extra["Preço"] = "10"

	tests := []struct {
		name    string
		rows    []Row
		wantRow int
	}{
		{name: "missing column", rows: []Row{supplierRow("M-200", "Eta"), missing}, wantRow: 1},
		{name: "extra column", rows: []Row{extra}, wantRow: 0},
		{name: "empty row", rows: []Row{{}}, wantRow: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.AddRows(tt.rows)
			require.ErrorIs(t, err, ErrSchemaMismatch)

			var oe *OpError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tt.wantRow, oe.Row)

			after, _ := eng.Table()
			assert.Equal(t, before, after)
			assert.Equal(t, rev, eng.Version().Revision)
		})
	}
}

func TestAddRows_NoSchema(t *testing.T) {
	eng := NewEngine(Config{})

	err := eng.AddRows([]Row{{"Material": "M-1"}})
	assert.ErrorIs(t, err, ErrNoSchema)

	_, ok := eng.Table()
	assert.False(t, ok)
}

func TestAddRows_EmptyBatch(t *testing.T) {
	eng, _ := loadedEngine(t)
	rev := eng.Version().Revision

	require.NoError(t, eng.AddRows(nil))
	assert.Equal(t, 6, eng.RowCount())
	assert.Equal(t, rev, eng.Version().Revision)
}

func TestDeleteRows_Compacts(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		want    []string
	}{
		{
			name:    "two rows",
			indices: []int{2, 4},
			want:    []string{"M-100", "M-101", "M-103", "M-105"},
		},
		{
			name:    "unsorted indices",
			indices: []int{4, 2},
			want:    []string{"M-100", "M-101", "M-103", "M-105"},
		},
		{
			name:    "duplicates removed once",
			indices: []int{0, 0, 5},
			want:    []string{"M-101", "M-102", "M-103", "M-104"},
		},
		{
			name:    "every row",
			indices: []int{0, 1, 2, 3, 4, 5},
			want:    []string{},
		},
		{
			name:    "nothing",
			indices: nil,
			want:    []string{"M-100", "M-101", "M-102", "M-103", "M-104", "M-105"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := loadedEngine(t)
			require.NoError(t, eng.DeleteRows(tt.indices))
			assert.Equal(t, tt.want, materials(t, eng))
		})
	}
}

func TestDeleteRows_MatchesDescendingSingleDeletes(t *testing.T) {
	batch, _ := loadedEngine(t)
	single, _ := loadedEngine(t)

	require.NoError(t, batch.DeleteRows([]int{1, 3, 4}))
	for _, idx := range []int{4, 3, 1} {
		require.NoError(t, single.DeleteRows([]int{idx}))
	}

	a, _ := batch.Table()
	b, _ := single.Table()
	assert.Equal(t, a, b)
}

func TestDeleteRows_OutOfRangeRemovesNothing(t *testing.T) {
	eng, _ := loadedEngine(t)
	before, _ := eng.Table()

	for _, indices := range [][]int{{1, 6}, {-1}, {0, 100}} {
		err := eng.DeleteRows(indices)
		assert.ErrorIs(t, err, ErrOutOfRange, "indices %v", indices)
	}

	after, _ := eng.Table()
	assert.Equal(t, before, after)
}

func TestDeleteRows_NoData(t *testing.T) {
	assert.ErrorIs(t, NewEngine(Config{}).DeleteRows([]int{0}), ErrNoData)
}

func TestMutations_BumpRevision(t *testing.T) {
	eng, _ := loadedEngine(t)
	id := eng.Version().LoadID

	require.NoError(t, eng.EditCell(0, "Material", "X"))
	require.NoError(t, eng.AddRows([]Row{supplierRow("M-200", "Eta")}))
	require.NoError(t, eng.DeleteRows([]int{0}))

	v := eng.Version()
	assert.Equal(t, uint64(3), v.Revision)
	assert.Equal(t, id, v.LoadID)
}
