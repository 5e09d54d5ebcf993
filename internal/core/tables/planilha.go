// internal/core/tables/planilha.go
package tables

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^A-Z0-9 ]+`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizarTexto remove acentos, passa para maiúsculas e troca pontuação por espaço.
func normalizarTexto(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// lerPlanilha devolve as linhas de uma planilha .xlsx, .xls ou .csv (';', ISO-8859-1).
func lerPlanilha(file io.Reader, nomeArquivo string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(nomeArquivo))
	switch ext {
	case ".xlsx":
		return lerXLSX(file)
	case ".xls":
		return lerXLS(file)
	case ".csv", ".txt":
		return lerCSV(file)
	default:
		return nil, fmt.Errorf("formato de planilha não suportado: %s", ext)
	}
}

func lerXLSX(file io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var linhas [][]string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		linhas = append(linhas, rows...)
	}
	return linhas, nil
}

func lerXLS(file io.Reader) ([][]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		// Muitos arquivos ".xls" exportados por sistemas são na verdade .xlsx.
		if _, errX := excelize.OpenReader(bytes.NewReader(data)); errX == nil {
			return lerXLSX(bytes.NewReader(data))
		}
		return nil, err
	}

	var linhas [][]string
	for _, sheet := range workbook.GetSheets() {
		for _, row := range sheet.GetRows() {
			var linha []string
			for _, cell := range row.GetCols() {
				linha = append(linha, cell.GetString())
			}
			linhas = append(linhas, linha)
		}
	}
	return linhas, nil
}

func lerCSV(file io.Reader) ([][]string, error) {
	decoder := charmap.ISO8859_1.NewDecoder()
	reader := csv.NewReader(transform.NewReader(file, decoder))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}
