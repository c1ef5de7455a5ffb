package order

import "github.com/go-faster/jx"

// The upstream create-order response has no single stable shape: depending on
// the backend version the sale record may be nested under "sale", the invoice
// field may be snake_case or camelCase, or the response body may be the sale
// record itself. Rather than nesting conditionals, resolution is an ordered
// chain of field paths tried until one yields a value.
var invoicePaths = [][]string{
	{"sale", "invoice_number"},
	{"sale", "invoiceNumber"},
	{"invoice_number"},
	{"invoiceNumber"},
}

// ResolveInvoiceNumber extracts the invoice number from a raw create-order
// response. The last two paths also cover backends that return the sale
// record at the top level. Returns false when no path matches, which callers
// must treat as an ambiguous success, not a failure: the order was almost
// certainly created, only its identifier is unrecoverable.
func ResolveInvoiceNumber(raw jx.Raw) (string, bool) {
	for _, path := range invoicePaths {
		if v, ok := extractPath(raw, path); ok {
			return v, true
		}
	}
	return "", false
}

func extractPath(raw jx.Raw, path []string) (string, bool) {
	cur := raw
	for _, key := range path {
		next, ok := objField(cur, key)
		if !ok {
			return "", false
		}
		cur = next
	}
	return scalarString(cur)
}

// objField returns the raw value of key in a JSON object, or false when raw
// is not an object or the key is absent.
func objField(raw jx.Raw, key string) (jx.Raw, bool) {
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return nil, false
	}

	var found jx.Raw
	err := d.ObjBytes(func(d *jx.Decoder, k []byte) error {
		if found == nil && string(k) == key {
			v, err := d.Raw()
			if err != nil {
				return err
			}
			found = v
			return nil
		}
		return d.Skip()
	})
	if err != nil || found == nil {
		return nil, false
	}
	return found, true
}

// scalarString renders a JSON string or number as a non-empty string.
// Some backends emit invoice numbers as bare integers.
func scalarString(raw jx.Raw) (string, bool) {
	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil || s == "" {
			return "", false
		}
		return s, true
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
