package analytics

import (
	"reflect"
	"testing"

	"behavior/internal/core"
	"behavior/internal/ordered"
)

func bucketOf(descs ...string) DateBucket {
	b := ordered.New[[]core.Record]()
	for i, d := range descs {
		key := "2023/07/01"
		if i%2 == 1 {
			key = "2023/07/02"
		}
		ordered.Append(b, key, core.Record{Description: core.Text(d)})
	}
	return b
}

func TestTokenize(t *testing.T) {
	b := bucketOf("tesco stores", "uber eats", "tescos", "uber_eats*card", "tesco stores")
	ordered.Append(b, "2023/07/03", core.Record{Description: core.MissingDescription()})

	want := []string{"card", "eats", "stores", "tesco", "tescos", "uber", "uber_eats"}
	if got := Tokenize(b); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
}

func TestGenerateCategoriesGreedyChaining(t *testing.T) {
	b := bucketOf("tesco stores", "uber eats", "tescos")

	got := GenerateCategories(b)
	if want := []string{"eats", "stores", "uber"}; !reflect.DeepEqual(got.Keys(), want) {
		t.Fatalf("category keys = %v, want %v", got.Keys(), want)
	}
	// "tesco" clears the threshold against "eats" (4/9), so the coarse
	// clustering files both tesco tokens under it.
	eats, _ := got.Get("eats")
	if want := []string{"eats", "tesco", "tescos"}; !reflect.DeepEqual(eats, want) {
		t.Fatalf("eats members = %v, want %v", eats, want)
	}
	stores, _ := got.Get("stores")
	if !reflect.DeepEqual(stores, []string{"stores"}) {
		t.Fatalf("stores members = %v", stores)
	}
}

func TestGenerateCategoriesEmpty(t *testing.T) {
	if got := GenerateCategories(ordered.New[[]core.Record]()); got.Len() != 0 {
		t.Fatalf("expected no categories, got %v", got.Keys())
	}
}
