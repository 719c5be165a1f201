package records

import (
	"fmt"
	"sort"
	"strings"
)

// ValueString приводит значение поля к строке для сравнения.
// nil превращается в пустую строку.
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Matches проверяет, что запись содержит все пары where (по строковому равенству).
func Matches(rec Record, where Record) bool {
	for k, want := range where {
		got, ok := rec[k]
		if !ok {
			return false
		}
		if ValueString(got) != ValueString(want) {
			return false
		}
	}
	return true
}

// MatchesSearch проверяет вхождение подстроки (без учёта регистра)
// хотя бы в одну из колонок поиска. Пустой запрос совпадает со всем.
func MatchesSearch(rec Record, s *Search) bool {
	if s == nil || strings.TrimSpace(s.Query) == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(s.Query))
	for _, col := range s.Columns {
		if strings.Contains(strings.ToLower(ValueString(rec[col])), needle) {
			return true
		}
	}
	return false
}

// SortRecords сортирует записи по полю orderBy (строковое сравнение,
// ISO-8601 даты упорядочиваются корректно). Сортировка стабильная.
func SortRecords(rows []Record, orderBy, order string) {
	if orderBy == "" {
		return
	}
	desc := strings.EqualFold(order, OrderDesc)
	sort.SliceStable(rows, func(i, j int) bool {
		a := ValueString(rows[i][orderBy])
		b := ValueString(rows[j][orderBy])
		if desc {
			return a > b
		}
		return a < b
	})
}

// Paginate вырезает страницу из rows. При list <= 0 возвращает всё без Meta.
// Страница меньше 1 приводится к 1.
func Paginate(rows []Record, page, list int) ([]Record, *Meta) {
	if list <= 0 {
		return rows, nil
	}
	if page < 1 {
		page = 1
	}
	total := len(rows)
	meta := &Meta{
		Page:       page,
		List:       list,
		Total:      total,
		TotalPages: (total + list - 1) / list,
	}

	start := (page - 1) * list
	if start >= total {
		return []Record{}, meta
	}
	end := start + list
	if end > total {
		end = total
	}
	return rows[start:end], meta
}

// Project оставляет в записи только указанные поля (отсутствующие пропускаются).
// Пустой список полей возвращает копию записи целиком.
func Project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec.Clone()
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Apply выполняет фильтрацию, поиск, сортировку, пагинацию и проекцию
// над полным набором строк таблицы. Используется драйверами без
// собственного движка запросов.
func Apply(rows []Record, q Query) *Result {
	filtered := make([]Record, 0, len(rows))
	for _, rec := range rows {
		if Matches(rec, q.Where) && MatchesSearch(rec, q.Search) {
			filtered = append(filtered, rec)
		}
	}

	SortRecords(filtered, q.OrderBy, q.Order)
	page, meta := Paginate(filtered, q.Page, q.List)

	data := make([]Record, 0, len(page))
	for _, rec := range page {
		data = append(data, Project(rec, q.Fields))
	}
	return &Result{Data: data, Meta: meta}
}
