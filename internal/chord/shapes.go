package chord

// DefaultShapes returns the open chord shapes.
func DefaultShapes() []*Shape {
	return []*Shape{
		{Name: "C", Frets: [6]int{0, 1, 0, 2, 3, 0}, Fingers: [6]int{0, 1, 0, 2, 3, 0}},
		{Name: "G", Frets: [6]int{3, 0, 0, 0, 2, 3}, Fingers: [6]int{2, 0, 0, 0, 1, 3}},
		{Name: "D", Frets: [6]int{2, 3, 2, 0, 0, 0}, Fingers: [6]int{2, 3, 1, 0, 0, 0}},
		{Name: "A", Frets: [6]int{0, 0, 2, 2, 2, 0}, Fingers: [6]int{0, 0, 1, 2, 3, 0}},
		{Name: "E", Frets: [6]int{0, 0, 1, 2, 2, 0}, Fingers: [6]int{0, 0, 1, 3, 2, 0}},
		{Name: "Am", Frets: [6]int{0, 1, 2, 2, 0, 0}, Fingers: [6]int{0, 1, 3, 2, 0, 0}},
		{Name: "Em", Frets: [6]int{0, 0, 0, 2, 2, 0}, Fingers: [6]int{0, 0, 0, 2, 1, 0}},
	}
}
