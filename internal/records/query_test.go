package records

import "testing"

func sampleRows() []Record {
	return []Record{
		{"id": "1", "fullname": "Ann Lee", "email": "ann@example.com", "createdAt": "2024-01-01T00:00:00Z"},
		{"id": "2", "fullname": "Bob Stone", "email": "bob@example.com", "createdAt": "2024-03-01T00:00:00Z"},
		{"id": "3", "fullname": "Joanna Hall", "email": "jo@example.com", "createdAt": "2024-02-01T00:00:00Z"},
		{"id": "4", "fullname": "Carl Diaz", "email": "ANNEX@corp.io", "createdAt": "2024-04-01T00:00:00Z"},
	}
}

func TestMatches(t *testing.T) {
	rec := Record{"id": "t1", "priority": "high", "count": 3}

	tests := []struct {
		name  string
		where Record
		want  bool
	}{
		{"пустой фильтр", nil, true},
		{"совпадение", Record{"id": "t1"}, true},
		{"число как строка", Record{"count": "3"}, true},
		{"несовпадение значения", Record{"id": "t2"}, false},
		{"отсутствующее поле", Record{"userId": "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(rec, tt.where); got != tt.want {
				t.Errorf("Matches(%v) = %v, ожидается %v", tt.where, got, tt.want)
			}
		})
	}
}

func TestApply_SearchCaseInsensitive(t *testing.T) {
	res := Apply(sampleRows(), Query{
		Search: &Search{Columns: []string{"fullname", "email"}, Query: "ann"},
	})

	got := map[string]bool{}
	for _, r := range res.Data {
		got[ValueString(r["id"])] = true
	}
	// Ann Lee, Joanna Hall (имя), ANNEX@corp.io (email)
	for _, id := range []string{"1", "3", "4"} {
		if !got[id] {
			t.Errorf("запись %s не найдена поиском", id)
		}
	}
	if got["2"] {
		t.Error("запись 2 не должна совпадать с запросом ann")
	}
}

func TestApply_SortAndPaginate(t *testing.T) {
	res := Apply(sampleRows(), Query{
		OrderBy: "createdAt",
		Order:   OrderDesc,
		Page:    2,
		List:    3,
	})

	if res.Meta == nil {
		t.Fatal("Meta = nil для постраничного запроса")
	}
	if res.Meta.Total != 4 || res.Meta.TotalPages != 2 || res.Meta.Page != 2 || res.Meta.List != 3 {
		t.Errorf("Meta = %+v, ожидается total=4 totalPages=2 page=2 list=3", *res.Meta)
	}
	if len(res.Data) != 1 {
		t.Fatalf("len(Data) = %d, ожидается 1", len(res.Data))
	}
	// Самая ранняя запись оказывается последней
	if res.Data[0]["id"] != "1" {
		t.Errorf("Data[0].id = %v, ожидается 1", res.Data[0]["id"])
	}
}

func TestApply_NoPagination(t *testing.T) {
	res := Apply(sampleRows(), Query{OrderBy: "createdAt", Order: OrderAsc})
	if res.Meta != nil {
		t.Errorf("Meta = %+v, ожидается nil без пагинации", *res.Meta)
	}
	if len(res.Data) != 4 {
		t.Fatalf("len(Data) = %d, ожидается 4", len(res.Data))
	}
	if res.Data[0]["id"] != "1" || res.Data[3]["id"] != "4" {
		t.Errorf("неверный порядок сортировки: %v ... %v", res.Data[0]["id"], res.Data[3]["id"])
	}
}

func TestApply_PageOutOfRange(t *testing.T) {
	res := Apply(sampleRows(), Query{Page: 10, List: 2})
	if len(res.Data) != 0 {
		t.Errorf("len(Data) = %d, ожидается 0", len(res.Data))
	}
	if res.Meta.TotalPages != 2 {
		t.Errorf("TotalPages = %d, ожидается 2", res.Meta.TotalPages)
	}
}

func TestProject(t *testing.T) {
	rec := Record{"id": "1", "email": "a@b.c", "secret": "x"}

	got := Project(rec, []string{"id", "email", "missing"})
	if len(got) != 2 {
		t.Errorf("Project() = %v, ожидается 2 поля", got)
	}
	if _, ok := got["secret"]; ok {
		t.Error("Project() оставил поле secret")
	}

	// Пустая проекция — копия, не тот же map
	all := Project(rec, nil)
	all["id"] = "changed"
	if rec["id"] != "1" {
		t.Error("Project(nil) вернул исходный map вместо копии")
	}
}
