package record

// Accumulator 按 Key 去重的有序映射，只属于一次 pipeline 运行，不做并发保护。
// 覆盖已有 Key 时保留首次插入的位置，保证相同输入顺序下 CSV 行序稳定。
type Accumulator struct {
	keys    []string
	records map[string]Record
}

func NewAccumulator() *Accumulator {
	return &Accumulator{records: make(map[string]Record)}
}

// Upsert 插入或覆盖，返回是否覆盖了已有记录
func (a *Accumulator) Upsert(rec Record) bool {
	key := rec.Key()
	_, exists := a.records[key]
	if !exists {
		a.keys = append(a.keys, key)
	}
	a.records[key] = rec
	return exists
}

func (a *Accumulator) Has(key string) bool {
	_, ok := a.records[key]
	return ok
}

func (a *Accumulator) Len() int {
	return len(a.keys)
}

// Snapshot 返回当前内容的有序副本，持久化前调用
func (a *Accumulator) Snapshot() []Record {
	out := make([]Record, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.records[k])
	}
	return out
}
