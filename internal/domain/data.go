package domain

// Entry is one key/value pair of lobby data.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Data is an insertion-ordered string map. Setting an existing key keeps its position.
type Data []Entry

func (d Data) Len() int { return len(d) }

func (d Data) Get(key string) (string, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func (d Data) Set(key, value string) Data {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, Entry{Key: key, Value: value})
}

func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	copy(out, d)
	return out
}

// Filter returns a copy holding only the requested keys, in the order asked.
// A nil key list means no filter; an empty, non-nil list yields no data at all.
func (d Data) Filter(keys []string) Data {
	if keys == nil {
		return d.Clone()
	}
	out := Data{}
	for _, k := range keys {
		if v, ok := d.Get(k); ok {
			out = out.Set(k, v)
		}
	}
	return out
}
