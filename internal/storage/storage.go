package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LJTian/FilingPulse/internal/pipeline"
	"github.com/LJTian/FilingPulse/internal/record"
)

// listCacheTTL 列表查询结果在 Redis 中的缓存时间
const listCacheTTL = 5 * time.Minute

// Run 一次 pipeline 运行的历史记录
type Run struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Job     string `gorm:"size:64;index" json:"job"`
	Variant string `gorm:"size:32;index" json:"variant"`
	Mode    string `gorm:"size:16" json:"mode"`
	Output  string `gorm:"size:512" json:"output"`

	StartedAt  time.Time `gorm:"index" json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Visited   int    `json:"visited"`
	Recorded  int    `json:"recorded"`
	Failed    int    `json:"failed"`
	Rows      int    `json:"rows"`
	Cancelled bool   `json:"cancelled"`
	Error     string `gorm:"size:1024" json:"error"`
	// Stats 完整的 RunStats，字段增减不需要迁移
	Stats datatypes.JSONMap `gorm:"type:jsonb" json:"stats"`

	CreatedAt time.Time `json:"createdAt"`
}

// RecordRow CSV 中一行的镜像，(variant, key) 唯一
type RecordRow struct {
	ID        string            `gorm:"primaryKey;size:40" json:"id"`
	Variant   string            `gorm:"size:32;index" json:"variant"`
	Key       string            `gorm:"size:1024;index" json:"key"`
	Fields    datatypes.JSONMap `gorm:"type:jsonb" json:"fields"`
	LastRunID uint              `gorm:"index" json:"lastRunId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *logrus.Logger
}

// NewStore 连接 Postgres 并迁移表结构；redisAddr 为空时不启用列表缓存
func NewStore(dsn, redisAddr string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&Run{}, &RecordRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{DB: db, Log: log}
	if redisAddr != "" {
		s.Redis = NewRedis(redisAddr, log)
	}
	return s, nil
}

// NewRedis 创建 Redis 客户端；ping 失败只告警，调用方照常使用（读写失败会降级）
func NewRedis(addr string, log *logrus.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("redis ping failed: %v", err)
	}
	return rdb
}

// OnRunFinished 写入运行记录，并把最终快照按 (variant, key) 幂等地镜像到 record_rows
func (s *Store) OnRunFinished(ctx context.Context, stats pipeline.RunStats, header []string, snapshot []record.Record) error {
	run := newRunModel(stats)
	db := s.DB.WithContext(ctx)
	if err := db.Create(&run).Error; err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	// FirstOrCreate 未命中时的 record not found 日志没有意义
	silent := db.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	for _, row := range newRecordRows(stats.Variant, header, snapshot, run.ID) {
		r := row
		if err := silent.Where("id = ?", r.ID).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("save record %s: %w", row.Key, err)
		}
		if err := db.Model(&r).Updates(map[string]any{
			"fields":      row.Fields,
			"last_run_id": run.ID,
		}).Error; err != nil {
			s.Log.WithField("key", row.Key).Warnf("update record error: %v", err)
		}
	}

	// 列表缓存依赖短 TTL 自然过期，不做通配删除
	return nil
}

// ListRuns 按开始时间倒序返回最近的运行记录
func (s *Store) ListRuns(ctx context.Context, job string, limit int) ([]Run, error) {
	limit = clampLimit(limit)
	cacheKey := runsCacheKey(job, limit)

	var cached []Run
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var list []Run
	db := s.DB.WithContext(ctx).Model(&Run{})
	if job != "" {
		db = db.Where("job = ?", job)
	}
	if err := db.Order("started_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, list)
	return list, nil
}

// ListRecords 返回某个 variant 的镜像记录，最近更新的在前
func (s *Store) ListRecords(ctx context.Context, variant string, limit int) ([]RecordRow, error) {
	limit = clampLimit(limit)
	cacheKey := recordsCacheKey(variant, limit)

	var cached []RecordRow
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var list []RecordRow
	db := s.DB.WithContext(ctx).Model(&RecordRow{})
	if variant != "" {
		db = db.Where("variant = ?", variant)
	}
	if err := db.Order("updated_at DESC").Order("key ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, list)
	return list, nil
}

func (s *Store) cacheGet(ctx context.Context, key string, out any) bool {
	if s.Redis == nil {
		return false
	}
	bs, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(bs, out) == nil
}

func (s *Store) cacheSet(ctx context.Context, key string, v any) {
	if s.Redis == nil {
		return
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, bs, listCacheTTL).Err(); err != nil && s.Log != nil {
		s.Log.Warnf("list cache set error: %v", err)
	}
}

func newRunModel(stats pipeline.RunStats) Run {
	return Run{
		Job:        stats.Job,
		Variant:    stats.Variant,
		Mode:       stats.Mode,
		Output:     columnValue(stats.Output, 512),
		StartedAt:  stats.StartedAt,
		FinishedAt: stats.FinishedAt,
		Visited:    stats.Visited,
		Recorded:   stats.Recorded,
		Failed:     stats.FailedTotal(),
		Rows:       stats.Rows,
		Cancelled:  stats.Cancelled,
		Error:      columnValue(stats.Error, 1024),
		Stats:      statsJSON(stats),
	}
}

func statsJSON(stats pipeline.RunStats) datatypes.JSONMap {
	bs, err := json.Marshal(stats)
	if err != nil {
		return nil
	}
	m := datatypes.JSONMap{}
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil
	}
	return m
}

// newRecordRows 把快照按表头转换成列名到值的映射
func newRecordRows(variant string, header []string, snapshot []record.Record, runID uint) []RecordRow {
	rows := make([]RecordRow, 0, len(snapshot))
	for _, rec := range snapshot {
		values := rec.Row()
		fields := datatypes.JSONMap{}
		for i, col := range header {
			if i < len(values) {
				fields[col] = strings.ToValidUTF8(values[i], "\uFFFD")
			}
		}
		key := strings.ToValidUTF8(rec.Key(), "\uFFFD")
		rows = append(rows, RecordRow{
			ID:        recordID(variant, key),
			Variant:   variant,
			Key:       columnValue(key, 1024),
			Fields:    fields,
			LastRunID: runID,
		})
	}
	return rows
}

// recordID 以 variant 与 key 的 sha1 作为主键，超长 URL 也能稳定去重
func recordID(variant, key string) string {
	h := sha1.New()
	h.Write([]byte(variant))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

func runsCacheKey(job string, limit int) string {
	return fmt.Sprintf("filingpulse:runs:%s:%d", job, limit)
}

func recordsCacheKey(variant string, limit int) string {
	return fmt.Sprintf("filingpulse:records:%s:%d", variant, limit)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 20
	}
	return limit
}

// columnValue 把值收敛到 varchar(size) 能接受的范围：非法字节替换为 U+FFFD，按字符数截断
func columnValue(s string, size int) string {
	if size <= 0 {
		return ""
	}
	s = strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
	if utf8.RuneCountInString(s) <= size {
		return s
	}
	return string([]rune(s)[:size])
}
