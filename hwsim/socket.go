// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

// A Socket maps a part's pin names to pin numbers in a circuit.
//
type Socket struct {
	m map[string]int
	c *Circuit
}

func newSocket(c *Circuit) *Socket {
	return &Socket{
		m: map[string]int{False: cstFalse, True: cstTrue, Clk: cstClk},
		c: c,
	}
}

// Pin returns the pin number allocated to the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) int {
	n, ok := s.m[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// PinOrNew returns the pin number allocated to the given pin name.
// If no such pin exists a new one is allocated.
//
func (s *Socket) PinOrNew(name string) int {
	n, ok := s.m[name]
	if !ok {
		n = s.c.allocPin()
		s.m[name] = n
	}
	return n
}

// Bus returns the pin numbers allocated to the given bus name.
// This function panics if any of the bus pins does not exist.
//
func (s *Socket) Bus(name string, bits int) []int {
	out := make([]int, bits)
	for i := range out {
		out[i] = s.Pin(BusPinName(name, i))
	}
	return out
}
