package core

// StatusTotals aggregates the items sharing one status.
type StatusTotals struct {
	Count int   `json:"count"`
	Total Money `json:"total"`
}

// Summary is a compact per-status overview of one kind of line-item.
type Summary struct {
	Kind     Kind                    `json:"kind"`
	Count    int                     `json:"count"`
	Total    Money                   `json:"total"`
	ByStatus map[Status]StatusTotals `json:"by_status"`
}

// Add accounts for one classified item.
func (s *Summary) Add(value Money, status Status) {
	if s.ByStatus == nil {
		s.ByStatus = make(map[Status]StatusTotals)
	}
	t := s.ByStatus[status]
	t.Count++
	t.Total = t.Total.Add(value)
	s.ByStatus[status] = t
	s.Count++
	s.Total = s.Total.Add(value)
}
