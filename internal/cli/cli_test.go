package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/godilite/bonus-panel/internal/engine"
	"github.com/godilite/bonus-panel/internal/report"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName("Sheet1", "Julho"))
	_, err := f.NewSheet("Agosto")
	require.NoError(t, err)

	header := []any{"NOME", "FUNÇÃO", "CIDADE", "VALOR MENSAL META", "OBSERVAÇÃO"}
	sheets := map[string][][]any{
		"Julho": {
			header,
			{"JOÃO SILVA", "VISTORIADOR", "CAROLINA", 600, ""},
			{"ANA LIMA", "VISTORIADOR", "TIMON", 600, "Licença médica"},
		},
		"Agosto": {
			header,
			{"JOÃO SILVA", "VISTORIADOR", "CAROLINA", 600, ""},
		},
	}
	for name, rows := range sheets {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}

	path := filepath.Join(t.TempDir(), "bonus.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--weights", "../../data/pesos_log.json",
		"--indicators", "../../data/indicadores.json",
		"--supervisors", "../../data/supervisores.yaml",
		"--months", "JULHO,AGOSTO,SETEMBRO",
	}
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateFromWorkbook(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, "evaluate", "JULHO", "--workbook", wb, "--source", "workbook", "--missed")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "NOME")
	assert.Contains(t, lines[0], "NÃO ATINGIDO")
	assert.Contains(t, lines[1], "JOÃO SILVA")
	assert.Contains(t, lines[1], "R$ 600,00")
	assert.Contains(t, lines[2], "ANA LIMA")
	assert.Contains(t, lines[2], engine.BadgeLeave)
	assert.Contains(t, out, "JULHO: 2 colaboradores")
}

func TestEvaluateJSON(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, "evaluate", "--workbook", wb, "--source", "workbook", "--json", "--name", "joão")
	require.NoError(t, err)

	var p report.Panel
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "TRIMESTRE", p.Period)
	require.Len(t, p.Cards, 1)
	assert.Equal(t, []string{"JULHO", "AGOSTO"}, p.Cards[0].Months)
}

func TestEvaluateUnknownPeriod(t *testing.T) {
	_, err := run(t, "evaluate", "MARÇO", "--workbook", writeWorkbook(t), "--source", "workbook")
	assert.ErrorContains(t, err, "unknown period")
}

func TestImportThenEvaluateFromSQLite(t *testing.T) {
	wb := writeWorkbook(t)
	db := filepath.Join(t.TempDir(), "bonus.db")

	out, err := run(t, "import", "--workbook", wb, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "JULHO: 2 registros importados\nAGOSTO: 1 registros importados\n", out)

	out, err = run(t, "months", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "JULHO")
	assert.Contains(t, out, "R$ 1.200,00")
	assert.Contains(t, out, "AGOSTO")

	out, err = run(t, "evaluate", "AGOSTO", "--db", db, "--source", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "AGOSTO: 1 colaboradores")
}

func TestImportOnly(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bonus.db")

	out, err := run(t, "import", "--workbook", writeWorkbook(t), "--db", db, "--only", "agosto")
	require.NoError(t, err)
	assert.Equal(t, "AGOSTO: 1 registros importados\n", out)
}

func TestImportFlushCacheUnreachable(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bonus.db")

	out, err := run(t, "import", "--workbook", writeWorkbook(t), "--db", db, "--flush-cache", "--redis-addr", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush cache")
	// The rows are stored even when the cache cannot be reached.
	assert.Contains(t, out, "JULHO: 2 registros importados")
}

func TestMonthsEmptyStore(t *testing.T) {
	out, err := run(t, "months", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Equal(t, "nenhum mês importado\n", out)
}

func TestStatement(t *testing.T) {
	wb := writeWorkbook(t)
	pdf := filepath.Join(t.TempDir(), "joao.pdf")

	_, err := run(t, "statement", "JULHO", "joão silva", "--workbook", wb, "--source", "workbook", "-o", pdf)
	require.NoError(t, err)

	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = run(t, "statement", "JULHO", "NOBODY", "--workbook", wb, "--source", "workbook")
	assert.ErrorContains(t, err, "employee not found")
}

func TestOrderMonths(t *testing.T) {
	byMonth := map[string][]engine.EmployeeMonthRecord{
		"OUTUBRO": nil, "AGOSTO": nil, "JULHO": nil, "ABRIL": nil,
	}
	assert.Equal(t,
		[]string{"JULHO", "AGOSTO", "ABRIL", "OUTUBRO"},
		orderMonths(byMonth, []string{"julho", "agosto", "setembro"}))
}
