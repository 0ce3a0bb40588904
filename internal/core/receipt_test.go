package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeReceiptPayloadExample(t *testing.T) {
	in := "```json\n{\"storeName\":\"A\",\"date\":\"2024-01-01\",\"totalAmount\":100,\"items\":[]}\n```"
	r, err := NormalizeReceiptPayload(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.StoreName != "A" || r.Date != "2024-01-01" {
		t.Fatalf("unexpected header %+v", r)
	}
	if !r.TotalAmount.Valid || !r.TotalAmount.Decimal.Equal(amt(100)) {
		t.Fatalf("expected total 100, got %+v", r.TotalAmount)
	}
	if r.Items == nil || len(r.Items) != 0 {
		t.Fatalf("expected empty items, got %#v", r.Items)
	}
}

func TestNormalizeReceiptPayloadFences(t *testing.T) {
	body := `{"storeName":"B","items":[{"name":"milk","price":"198","category":"food"}]}`
	inputs := []string{
		body,
		"  " + body + "\n",
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
		"```json " + body + "```",
	}
	for _, in := range inputs {
		r, err := NormalizeReceiptPayload(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if r.StoreName != "B" || len(r.Items) != 1 || !r.Items[0].Price.Decimal.Equal(amt(198)) {
			t.Fatalf("%q: unexpected result %+v", in, r)
		}
	}
}

func TestNormalizeReceiptPayloadToleratesNulls(t *testing.T) {
	in := `{"storeName":null,"date":null,"totalAmount":null,"items":[{"name":"gum","price":null,"category":null}]}`
	r, err := NormalizeReceiptPayload(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.StoreName != "" || r.TotalAmount.Valid {
		t.Fatalf("nulls should decode to empty values, got %+v", r)
	}
	if r.Items[0].Price.Valid || r.Items[0].Category != "" {
		t.Fatalf("item nulls should decode to empty values, got %+v", r.Items[0])
	}
}

func TestNormalizeReceiptPayloadErrors(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"", ErrUpstreamEmpty},
		{"   \n", ErrUpstreamEmpty},
		{"```json\n```", ErrMalformedPayload},
		{"I could not read this receipt.", ErrMalformedPayload},
		{"```json\n{\"storeName\": }\n```", ErrMalformedPayload},
		{"null", ErrMalformedPayload},
		{"```json\nnull\n```", ErrMalformedPayload},
		{"[{\"storeName\":\"A\"}]", ErrMalformedPayload},
	}
	for _, tc := range cases {
		if _, err := NormalizeReceiptPayload(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestStripCodeFenceIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		"```\n{\"a\":1}\n```",
		"{\"a\":1}",
		"not json",
	}
	for _, in := range inputs {
		once := StripCodeFence(in)
		twice := StripCodeFence(once)
		if once != twice {
			t.Fatalf("%q: %q != %q", in, once, twice)
		}
		r1, err1 := NormalizeReceiptPayload(once)
		r2, err2 := NormalizeReceiptPayload(twice)
		if (err1 == nil) != (err2 == nil) || !reflect.DeepEqual(r1, r2) {
			t.Fatalf("%q: re-normalising changed the result", in)
		}
	}
}

func TestReceiptTransactions(t *testing.T) {
	r, err := NormalizeReceiptPayload(`{
		"storeName": "Green Mart",
		"date": "2024-03-09",
		"totalAmount": 1046,
		"items": [
			{"name": "Milk", "price": 198, "category": "food"},
			{"name": "Train card", "price": 500, "category": "transport"},
			{"name": "Bread", "price": 150, "category": "food"},
			{"name": "Mystery", "price": 99, "category": "unknown"},
			{"name": "Gum", "price": null, "category": "food"},
			{"name": "Bonus", "price": 99, "category": "salary"}
		]
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fallback := NewDate(2024, 3, 10)
	got := ReceiptTransactions(r, sampleCategories(), "u1", fallback, "gs://bucket/r.jpg")
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d: %+v", len(got), got)
	}

	food, transport := got[0], got[1]
	if food.CategoryID != 1 || !food.Amount.Equal(amt(348)) {
		t.Fatalf("food: %+v", food)
	}
	if food.Memo != "Green Mart\nMilk ¥198, Bread ¥150, Gum ¥0" {
		t.Fatalf("food memo: %q", food.Memo)
	}
	if transport.CategoryID != 2 || !transport.Amount.Equal(amt(500)) {
		t.Fatalf("transport: %+v", transport)
	}
	for _, tx := range got {
		if tx.Kind != KindExpense || tx.UserID != "u1" || tx.Date.String() != "2024-03-09" || tx.ReceiptImageURL != "gs://bucket/r.jpg" {
			t.Fatalf("unexpected header fields %+v", tx)
		}
		if err := tx.Validate(); err != nil {
			t.Fatalf("derived transaction invalid: %v", err)
		}
	}
}

func TestReceiptTransactionsFallbackDate(t *testing.T) {
	r := ReceiptExtraction{Date: "sometime", Items: []ReceiptItem{{Name: "x", Category: "food"}}}
	got := ReceiptTransactions(r, sampleCategories(), "u1", NewDate(2024, 1, 2), "")
	if len(got) != 1 || got[0].Date.String() != "2024-01-02" {
		t.Fatalf("expected fallback date, got %+v", got)
	}
}
