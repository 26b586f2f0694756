package crawler

import "tourcatalog/internal/model"

// Collect returns every product reachable from root keyed by id. A product
// listed under several folders appears once; the last occurrence in
// depth-first order wins.
func Collect(root model.FolderNode) map[string]model.ProductSummary {
	out := make(map[string]model.ProductSummary)
	for _, child := range root.Children {
		switch child.Kind {
		case model.KindProduct:
			out[child.Product.ID] = *child.Product
		case model.KindFolder:
			for id, p := range Collect(*child.Folder) {
				out[id] = p
			}
		}
	}
	return out
}

// MapProducts returns a copy of root with fn applied to every product node.
func MapProducts(root model.FolderNode, fn func(model.ProductSummary) model.ProductSummary) model.FolderNode {
	children := make([]model.Node, 0, len(root.Children))
	for _, child := range root.Children {
		switch child.Kind {
		case model.KindProduct:
			children = append(children, model.ProductEntry(fn(*child.Product)))
		case model.KindFolder:
			children = append(children, model.FolderEntry(MapProducts(*child.Folder, fn)))
		default:
			children = append(children, child)
		}
	}
	root.Children = children
	return root
}
