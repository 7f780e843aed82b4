package models

// SignatureRow is one device with its channels as named columns.
// Every series in Series has the same length.
type SignatureRow struct {
	DeviceIndex int                  `json:"device_index"`
	Label       string               `json:"label"`
	Channels    []string             `json:"channels"`
	Series      map[string][]float64 `json:"series"`
}

// Length returns the number of complete samples of the device
func (r *SignatureRow) Length() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Series[r.Channels[0]])
}

// Samples expands the row into one feature vector per sample position,
// features ordered as Channels
func (r *SignatureRow) Samples() [][]float64 {
	n := r.Length()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		vec := make([]float64, len(r.Channels))
		for j, ch := range r.Channels {
			vec[j] = r.Series[ch][i]
		}
		out[i] = vec
	}
	return out
}

// SignatureTable holds one row per device in ascending device index order
type SignatureTable struct {
	Rows []SignatureRow `json:"rows"`
}

// Labels returns the label of every device row in order
func (t *SignatureTable) Labels() []string {
	labels := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		labels[i] = r.Label
	}
	return labels
}

// LabelIndex maps each label to its first-appearance rank
type LabelIndex struct {
	Labels []string       `json:"labels"`
	Codes  map[string]int `json:"codes"`
}

// NewLabelIndex returns an empty index
func NewLabelIndex() *LabelIndex {
	return &LabelIndex{
		Labels: make([]string, 0),
		Codes:  make(map[string]int),
	}
}

// Add assigns the next unused code to label if it is new and returns its code
func (l *LabelIndex) Add(label string) int {
	if code, ok := l.Codes[label]; ok {
		return code
	}
	code := len(l.Labels)
	l.Labels = append(l.Labels, label)
	l.Codes[label] = code
	return code
}

// Code returns the code of label
func (l *LabelIndex) Code(label string) (int, bool) {
	code, ok := l.Codes[label]
	return code, ok
}
