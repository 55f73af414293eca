package store

import "context"

// defaultScanCount — подсказка COUNT для SCAN.
const defaultScanCount = 100

// Cursor — возобновляемый обход ключей через SCAN.
//
// Обход начинается с курсора 0 и заканчивается, когда хранилище снова
// возвращает курсор 0. Хранилище может вернуть ключ несколько раз
// и в любом порядке — Cursor это не исправляет, см. ScanAll.
type Cursor struct {
	store  Store
	match  string
	count  int64
	cursor uint64
	pages  int
	done   bool
}

// NewCursor создаёт курсор по ключам, подходящим под match.
func NewCursor(s Store, match string, count int64) *Cursor {
	if count <= 0 {
		count = defaultScanCount
	}
	return &Cursor{store: s, match: match, count: count}
}

// Next возвращает следующую страницу ключей.
// После последней страницы Done() возвращает true.
func (c *Cursor) Next(ctx context.Context) ([]string, error) {
	if c.done {
		return nil, nil
	}

	keys, next, err := c.store.Scan(ctx, c.cursor, c.match, c.count)
	if err != nil {
		return nil, err
	}

	c.pages++
	c.cursor = next
	if next == 0 {
		c.done = true
	}
	return keys, nil
}

// Done возвращает true, когда хранилище вернуло терминальный курсор.
func (c *Cursor) Done() bool {
	return c.done
}

// Pages возвращает количество прочитанных страниц.
func (c *Cursor) Pages() int {
	return c.pages
}

// ScanAll обходит все ключи под match и убирает повторы.
// Порядок ключей — порядок первого появления.
func ScanAll(ctx context.Context, s Store, match string) ([]string, error) {
	cur := NewCursor(s, match, defaultScanCount)
	seen := make(map[string]struct{})
	var result []string

	for !cur.Done() {
		keys, err := cur.Next(ctx)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, key)
		}
	}

	return result, nil
}
