// Package channels владеет списком отслеживаемых каналов и темпом JOIN/PART.
package channels

import (
	"slices"
	"strings"
)

// Normalize приводит имя канала к нижнему регистру с ведущим '#'. Функция идемпотентна.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	return name
}

// Set — упорядоченный список каналов без повторов.
type Set struct {
	names []string
}

// NewSet нормализует имена, убирает повторы и сортирует.
func NewSet(names ...string) *Set {
	s := &Set{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add добавляет канал; false, если он уже есть.
func (s *Set) Add(name string) bool {
	name = Normalize(name)
	i, found := slices.BinarySearch(s.names, name)
	if found || name == "#" {
		return false
	}
	s.names = slices.Insert(s.names, i, name)
	return true
}

// Remove удаляет канал; false, если его не было.
func (s *Set) Remove(name string) bool {
	i, found := slices.BinarySearch(s.names, Normalize(name))
	if !found {
		return false
	}
	s.names = slices.Delete(s.names, i, i+1)
	return true
}

// Contains сообщает, есть ли канал в списке.
func (s *Set) Contains(name string) bool {
	_, found := slices.BinarySearch(s.names, Normalize(name))
	return found
}

// Len возвращает число каналов.
func (s *Set) Len() int {
	return len(s.names)
}

// List возвращает копию отсортированного списка.
func (s *Set) List() []string {
	return slices.Clone(s.names)
}
