package crawler

import (
	"testing"

	"tourcatalog/internal/model"
)

func product(id, title string) model.Node {
	return model.ProductEntry(model.ProductSummary{ID: id, Title: title})
}

func folder(title string, children ...model.Node) model.Node {
	return model.FolderEntry(model.FolderNode{Title: title, Children: children})
}

func TestCollect_DeduplicatesAcrossFolders(t *testing.T) {
	root := model.FolderNode{Children: []model.Node{
		folder("Desert", product("1", "Dune Bash"), product("2", "Camel Ride")),
		folder("Top Picks", product("1", "Dune Bash"), folder("Nested", product("2", "Camel Ride"), product("3", "Dhow Cruise"))),
		product("3", "Dhow Cruise"),
	}}

	got := Collect(root)
	if len(got) != 3 {
		t.Fatalf("Expected 3 distinct products, got %d", len(got))
	}
	for _, id := range []string{"1", "2", "3"} {
		if got[id].ID != id {
			t.Errorf("Expected product %s keyed by its id, got %+v", id, got[id])
		}
	}
}

func TestCollect_EmptyTree(t *testing.T) {
	if got := Collect(model.FolderNode{}); len(got) != 0 {
		t.Errorf("Expected empty map, got %v", got)
	}
}

func TestMapProducts_RewritesEveryProduct(t *testing.T) {
	root := model.FolderNode{Title: "root", Children: []model.Node{
		folder("A", product("1", "Ann's Tour")),
		product("2", "Big Bus"),
	}}

	out := MapProducts(root, Annotate)

	if out.Children[0].Folder.Children[0].Product.Slug != "ann-s-tour" {
		t.Errorf("Expected nested product annotated, got %+v", out.Children[0].Folder.Children[0].Product)
	}
	if out.Children[1].Product.Slug != "big-bus" {
		t.Errorf("Expected top-level product annotated, got %+v", out.Children[1].Product)
	}
	if root.Children[1].Product.Slug != "" {
		t.Error("Expected input tree to be left unchanged")
	}
}
