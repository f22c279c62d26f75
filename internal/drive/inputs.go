package drive

import (
	"path/filepath"
	"strings"
)

type InputKind string

const (
	InputOrders    InputKind = "orders"
	InputInventory InputKind = "inventory"
	InputTransit   InputKind = "transit"
)

type InputFile struct {
	Name string
	Data []byte
}

// Inputs holds the workbooks pulled for one offline calculation.
type Inputs struct {
	Orders    InputFile
	Inventory *InputFile
	Transit   *InputFile
}

func (in *Inputs) set(kind InputKind, f InputFile) {
	switch kind {
	case InputOrders:
		in.Orders = f
	case InputInventory:
		in.Inventory = &f
	case InputTransit:
		in.Transit = &f
	}
}

// ClassifyInput guesses the role of a spreadsheet from its file name.
func ClassifyInput(name string) (InputKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".xlsx" && ext != ".csv" {
		return "", false
	}

	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	switch {
	case strings.Contains(base, "transit"):
		return InputTransit, true
	case strings.Contains(base, "stock"), strings.Contains(base, "inventaire"), strings.Contains(base, "inventory"):
		return InputInventory, true
	case strings.Contains(base, "commande"), strings.Contains(base, "order"):
		return InputOrders, true
	}
	return "", false
}

// PickInputs keeps the first file of each kind; listings come newest first.
func PickInputs(files []*File) map[InputKind]*File {
	picked := make(map[InputKind]*File)
	for _, f := range files {
		kind, ok := ClassifyInput(f.Name)
		if !ok {
			continue
		}
		if _, seen := picked[kind]; !seen {
			picked[kind] = f
		}
	}
	return picked
}
