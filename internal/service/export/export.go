// Package export 将已回答的问答记录导出为训练文件（JSONL / CSV）
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ashwinyue/next-dataset/internal/service/file"
)

// Format 导出格式
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// 日期格式
const (
	dateLayout = "01-02-2006"
	timeLayout = "15_04_05"
)

// Record 一条训练样本
type Record struct {
	Question string
	Answer   string
}

// Line JSONL 中的一行
type Line struct {
	Instruction string `json:"instruction"`
	Context     string `json:"context"`
	Response    string `json:"response"`
}

// Result 导出结果
type Result struct {
	Format    Format
	Key       string
	Path      string
	URL       string
	MirrorURL string
	Lines     int
	Summary   *Summary
}

// Options 导出选项
type Options struct {
	// Normalize 替换弯引号和长破折号
	Normalize bool
	// Summarize 写入后用 DuckDB 统计
	Summarize bool
}

// Exporter 导出器
// 文件总是写入本地目录，mirror 非空时再上传一份
type Exporter struct {
	local  *file.LocalStorage
	mirror file.Storage
	opts   Options
}

// NewExporter 创建导出器
func NewExporter(local *file.LocalStorage, mirror file.Storage, opts Options) *Exporter {
	return &Exporter{local: local, mirror: mirror, opts: opts}
}

// Key 返回导出文件的存储键：{MM-DD-YYYY}/{MM-DD-YYYY}-{HH_MM_SS}-train.{ext}
func Key(now time.Time, format Format) string {
	date := now.Format(dateLayout)
	return fmt.Sprintf("%s/%s-%s-train.%s", date, date, now.Format(timeLayout), format)
}

// Normalize 替换弯引号和长破折号
func Normalize(s string) string {
	return strings.NewReplacer("’", "'", "—", "-").Replace(s)
}

// Write 写出记录，now 决定文件名
func (e *Exporter) Write(ctx context.Context, format Format, records []Record, now time.Time) (*Result, error) {
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case FormatJSONL:
		contentType = "application/jsonl"
		err = e.writeJSONL(&buf, records)
	case FormatCSV:
		contentType = "text/csv"
		err = e.writeCSV(&buf, records)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	data := buf.Bytes()
	key, err := e.local.Save(ctx, &file.SaveRequest{
		Key:         Key(now, format),
		ContentType: contentType,
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save export: %w", err)
	}

	res := &Result{
		Format: format,
		Key:    key,
		Path:   e.local.Path(key),
		URL:    e.local.GetURL(key),
		Lines:  len(records),
	}
	log.Printf("[export] wrote %d %s records to %s", res.Lines, format, res.Path)

	if e.mirror != nil {
		if _, err := e.mirror.Save(ctx, &file.SaveRequest{
			Key:         key,
			ContentType: contentType,
			Size:        int64(len(data)),
			Reader:      bytes.NewReader(data),
		}); err != nil {
			return nil, fmt.Errorf("failed to mirror export: %w", err)
		}
		res.MirrorURL = e.mirror.GetURL(key)
		log.Printf("[export] mirrored to %s", res.MirrorURL)
	}

	if e.opts.Summarize && res.Lines > 0 {
		summary, err := Summarize(ctx, res.Path, format)
		if err != nil {
			// 统计失败不影响导出结果
			log.Printf("[export] Warning: failed to summarize %s: %v", res.Path, err)
		} else {
			res.Summary = summary
		}
	}
	return res, nil
}

func (e *Exporter) writeJSONL(buf *bytes.Buffer, records []Record) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		line := Line{Instruction: r.Question, Context: "", Response: r.Answer}
		if e.opts.Normalize {
			line.Instruction = Normalize(line.Instruction)
			line.Response = Normalize(line.Response)
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeCSV(buf *bytes.Buffer, records []Record) error {
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Question", "Answer"}); err != nil {
		return err
	}
	for _, r := range records {
		q, a := r.Question, r.Answer
		if e.opts.Normalize {
			q, a = Normalize(q), Normalize(a)
		}
		if err := w.Write([]string{q, a}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
