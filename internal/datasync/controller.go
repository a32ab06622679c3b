package datasync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/metrics"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLoadTimeout 初次加载等待远端的最长时间
const DefaultLoadTimeout = 5 * time.Second

// Cache 本地缓存（见 cache.LocalCache）
type Cache interface {
	Load(ctx context.Context) []domain.BreakdownRecord
	Save(ctx context.Context, records []domain.BreakdownRecord)
}

// Source 当前记录列表的来源
type Source string

const (
	SourceNone   Source = "none"
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// State 控制器状态快照（只读副本）
type State struct {
	Records   []domain.BreakdownRecord `json:"records"`
	Loading   bool                     `json:"loading"`
	LastError string                   `json:"lastError,omitempty"`
	Degraded  bool                     `json:"degraded"`
	Source    Source                   `json:"source"`
	LoadedAt  time.Time                `json:"loadedAt,omitempty"`
}

// Options 控制器参数
type Options struct {
	LoadTimeout     time.Duration
	MutationTimeout time.Duration // <=0 表示不额外限制
	Now             func() time.Time
	NewLocalID      func() string
}

func (o *Options) withDefaults() {
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewLocalID == nil {
		o.NewLocalID = func() string { return "local-" + uuid.NewString() }
	}
}

// Controller 同步控制器：远端 Record Store 为准，本地缓存兜底
//
// 写操作先调用远端，无论成功与否都在本地列表生效并写入本地缓存；
// 远端失败只影响 lastError。
// mu 不跨远端调用持有，因此并发写操作按完成顺序落到内存列表。
// 加载进行中发生的写操作记入 journal，加载完成后重放到新列表上。
type Controller struct {
	store  recordstore.Store
	cache  Cache
	logger *zap.Logger
	opts   Options

	mu         sync.Mutex
	records    []domain.BreakdownRecord
	loading    bool
	lastError  string
	degraded   bool
	source     Source
	loadedAt   time.Time
	generation uint64

	mutationSeq uint64
	errorSeq    uint64 // 最近一次设置 lastError 的写操作
	journal     []journalEntry

	// saveMu 串行化本地缓存写入，保证最后一次写入的是最新列表
	saveMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
}

// mutation 对记录列表的一次修改，重放时必须幂等
type mutation func([]domain.BreakdownRecord) []domain.BreakdownRecord

type journalEntry struct {
	seq   uint64
	apply mutation
}

// NewController 创建同步控制器（初始为空列表，需调用 Load）
func NewController(store recordstore.Store, cache Cache, logger *zap.Logger, opts Options) *Controller {
	opts.withDefaults()
	return &Controller{
		store:       store,
		cache:       cache,
		logger:      logger,
		opts:        opts,
		records:     []domain.BreakdownRecord{},
		source:      SourceNone,
		subscribers: map[int]func(Event){},
	}
}

// Load 从远端加载记录；超时或失败时降级为本地缓存
func (c *Controller) Load(ctx context.Context) State {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	since := c.mutationSeq
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()

	start := time.Now()
	records, err := c.listWithTimeout(ctx)
	metrics.RecordStoreCall("list", start, err)

	if err == nil {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			c.logger.Debug("Discarding stale load result", zap.Uint64("generation", gen))
			return c.Snapshot()
		}
		replayed := c.pendingSince(since)
		c.records = c.applyJournal(records, since)
		c.loading = false
		if c.errorSeq <= since {
			c.lastError = ""
		}
		c.degraded = false
		c.source = SourceRemote
		c.loadedAt = c.opts.Now()
		count := len(c.records)
		c.mu.Unlock()

		metrics.LoadsTotal.WithLabelValues(string(SourceRemote), "").Inc()
		metrics.SetDegraded(false)
		c.logger.Info("Loaded records from record store",
			zap.Int("record_count", count),
			zap.Int("replayed_mutations", replayed),
		)

		c.persist(ctx)
		c.emit(Event{Type: EventLoaded, Remote: true, RecordCount: count})
		return c.Snapshot()
	}

	cause := Classify(err)
	message := LoadErrorMessage(cause)
	c.logger.Error("Failed to load records from record store",
		zap.String("cause", string(cause)),
		zap.Error(err),
	)

	cached := c.cache.Load(ctx)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale load failure", zap.Uint64("generation", gen))
		return c.Snapshot()
	}
	c.lastError = message
	c.loading = false
	c.degraded = true
	if len(cached) > 0 {
		c.records = c.applyJournal(cached, since)
		c.source = SourceCache
	} else if len(c.records) == 0 {
		c.source = SourceNone
	}
	c.journal = nil
	c.loadedAt = c.opts.Now()
	count := len(c.records)
	source := c.source
	c.mu.Unlock()

	metrics.LoadsTotal.WithLabelValues(string(source), string(cause)).Inc()
	metrics.SetDegraded(true)
	if len(cached) > 0 {
		c.logger.Info("Loaded records from local cache (offline mode)", zap.Int("record_count", len(cached)))
	}

	c.emit(Event{Type: EventLoaded, Remote: false, Error: message, RecordCount: count})
	return c.Snapshot()
}

// Refresh 重新执行完整加载流程
func (c *Controller) Refresh(ctx context.Context) State {
	return c.Load(ctx)
}

// listWithTimeout 远端 List 与计时器竞争，计时器先到则放弃远端调用
func (c *Controller) listWithTimeout(ctx context.Context) ([]domain.BreakdownRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		records []domain.BreakdownRecord
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		records, err := c.store.List(ctx)
		ch <- result{records: records, err: err}
	}()

	timer := time.NewTimer(c.opts.LoadTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err == nil && res.records == nil {
			res.records = []domain.BreakdownRecord{}
		}
		return res.records, res.err
	case <-timer.C:
		return nil, ErrLoadTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AddRecord 新增记录，返回本地列表中的记录（远端失败时带本地 id）
// 以及本次操作设置的 lastError（远端成功时为空）
func (c *Controller) AddRecord(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, string) {
	c.clearError()

	mctx, cancel := c.mutationContext(ctx)
	start := time.Now()
	created, err := c.store.Create(mctx, record)
	cancel()
	metrics.RecordStoreCall("create", start, err)

	var message string
	if err != nil {
		c.logger.Error("Failed to add record to record store, keeping it locally", zap.Error(err))
		message = MsgAddFailed
		now := c.opts.Now().UTC().Format(time.RFC3339Nano)
		created = record
		created.ID = c.opts.NewLocalID()
		created.Timestamp = domain.RawTime(now)
		if created.CreatedAt.IsZero() {
			created.CreatedAt = domain.RawTime(now)
		}
	}

	c.mutate(addRecord(created), message)

	c.persist(ctx)
	c.emit(mutationEvent(EventAdded, created.ID, err))
	return created, message
}

// UpdateRecord 合并字段；返回合并后的记录、是否在本地列表中找到以及本次设置的 lastError
func (c *Controller) UpdateRecord(ctx context.Context, id string, patch domain.RecordPatch) (domain.BreakdownRecord, bool, string) {
	c.clearError()

	mctx, cancel := c.mutationContext(ctx)
	start := time.Now()
	err := c.store.Update(mctx, id, patch)
	cancel()
	metrics.RecordStoreCall("update", start, err)

	var message string
	if err != nil {
		c.logger.Error("Failed to update record in record store, applying locally",
			zap.String("record_id", id),
			zap.Error(err),
		)
		message = MsgUpdateFailed
	}
	_, next := c.mutate(updateRecord(id, patch, c.opts.Now().UTC()), message)

	var (
		updated domain.BreakdownRecord
		found   bool
	)
	for _, r := range next {
		if r.ID == id {
			updated, found = r, true
			break
		}
	}

	c.persist(ctx)
	c.emit(mutationEvent(EventUpdated, id, err))
	return updated, found, message
}

// DeleteRecord 删除记录；返回本地列表中是否删除了记录以及本次设置的 lastError
func (c *Controller) DeleteRecord(ctx context.Context, id string) (bool, string) {
	c.clearError()

	mctx, cancel := c.mutationContext(ctx)
	start := time.Now()
	err := c.store.Delete(mctx, id)
	cancel()
	metrics.RecordStoreCall("delete", start, err)

	// 远端已不存在视为删除成功
	if errors.Is(err, recordstore.ErrNotFound) {
		err = nil
	}
	var message string
	if err != nil {
		c.logger.Error("Failed to delete record from record store, removing locally",
			zap.String("record_id", id),
			zap.Error(err),
		)
		message = MsgDeleteFailed
	}
	before, next := c.mutate(deleteRecord(id), message)
	removed := len(next) < before

	c.persist(ctx)
	c.emit(mutationEvent(EventDeleted, id, err))
	return removed, message
}

// DismissError 清除 lastError（用户关闭提示）
func (c *Controller) DismissError() {
	c.clearError()
}

// Snapshot 返回当前状态的副本
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Records:   cloneRecords(c.records),
		Loading:   c.loading,
		LastError: c.lastError,
		Degraded:  c.degraded,
		Source:    c.source,
		LoadedAt:  c.loadedAt,
	}
}

// Records 返回当前记录列表的副本
func (c *Controller) Records() []domain.BreakdownRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRecords(c.records)
}

func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) clearError() {
	c.mu.Lock()
	c.lastError = ""
	c.mu.Unlock()
}

func (c *Controller) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.MutationTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.MutationTimeout)
	}
	return context.WithCancel(ctx)
}

// mutate 在内存列表上应用修改并设置 lastError；加载进行中时记入 journal
// 返回修改前的记录数和修改后的列表（列表只读）
func (c *Controller) mutate(m mutation, message string) (int, []domain.BreakdownRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.records)
	c.records = m(c.records)
	c.mutationSeq++
	if message != "" {
		c.lastError = message
		c.errorSeq = c.mutationSeq
	}
	if c.loading {
		c.journal = append(c.journal, journalEntry{seq: c.mutationSeq, apply: m})
	}
	return before, c.records
}

// pendingSince journal 中 seq 之后的写操作数量，调用方持有 mu
func (c *Controller) pendingSince(seq uint64) int {
	n := 0
	for _, e := range c.journal {
		if e.seq > seq {
			n++
		}
	}
	return n
}

// applyJournal 把 seq 之后的写操作重放到 records 上并清空 journal，调用方持有 mu
func (c *Controller) applyJournal(records []domain.BreakdownRecord, seq uint64) []domain.BreakdownRecord {
	for _, e := range c.journal {
		if e.seq > seq {
			records = e.apply(records)
		}
	}
	c.journal = nil
	return records
}

// addRecord 放到列表最前；已存在同 id 时不重复添加
func addRecord(created domain.BreakdownRecord) mutation {
	return func(records []domain.BreakdownRecord) []domain.BreakdownRecord {
		for _, r := range records {
			if r.ID == created.ID {
				return records
			}
		}
		next := make([]domain.BreakdownRecord, 0, len(records)+1)
		next = append(next, created)
		return append(next, records...)
	}
}

func updateRecord(id string, patch domain.RecordPatch, now time.Time) mutation {
	return func(records []domain.BreakdownRecord) []domain.BreakdownRecord {
		next := make([]domain.BreakdownRecord, len(records))
		for i, r := range records {
			if r.ID == id {
				r = patch.Apply(r, now)
			}
			next[i] = r
		}
		return next
	}
}

func deleteRecord(id string) mutation {
	return func(records []domain.BreakdownRecord) []domain.BreakdownRecord {
		next := make([]domain.BreakdownRecord, 0, len(records))
		for _, r := range records {
			if r.ID != id {
				next = append(next, r)
			}
		}
		return next
	}
}

// persist 把最新列表写入本地缓存
func (c *Controller) persist(ctx context.Context) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	records := c.Records()
	metrics.RecordsInMemory.Set(float64(len(records)))
	c.cache.Save(ctx, records)
}

func cloneRecords(in []domain.BreakdownRecord) []domain.BreakdownRecord {
	out := make([]domain.BreakdownRecord, len(in))
	copy(out, in)
	return out
}
