package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Summary 导出文件统计
type Summary struct {
	Rows           int64
	AvgQuestionLen float64
	AvgAnswerLen   float64
}

// Summarize 使用 DuckDB 读取导出文件并统计
func Summarize(ctx context.Context, path string, format Format) (*Summary, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	lit := quoteLiteral(path)
	var query string
	switch format {
	case FormatJSONL:
		query = fmt.Sprintf(`SELECT count(*), coalesce(avg(length(instruction)), 0), coalesce(avg(length(response)), 0)
FROM read_json_auto(%s, format = 'newline_delimited')`, lit)
	case FormatCSV:
		query = fmt.Sprintf(`SELECT count(*), coalesce(avg(length("Question")), 0), coalesce(avg(length("Answer")), 0)
FROM read_csv_auto(%s, header = true, all_varchar = true)`, lit)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}

	var s Summary
	if err := db.QueryRowContext(ctx, query).Scan(&s.Rows, &s.AvgQuestionLen, &s.AvgAnswerLen); err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}
	return &s, nil
}

// quoteLiteral 转义 SQL 字符串字面量
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
