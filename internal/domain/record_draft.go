package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// OtherOption 表单中的 "Other" 选项，提交时由自由文本覆盖
const OtherOption = "Other"

// ShiftOption 班次选项
type ShiftOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	Executives = []string{"Yeshwanth", "Adarsh", "Deepak"}

	Shifts = []ShiftOption{
		{Value: "General (8am-5pm)", Label: "General Shift (8am to 5pm)"},
		{Value: "Evening (4pm-12pm)", Label: "Evening Shift (4pm to 12pm)"},
		{Value: "Night (12am-8am)", Label: "Night Shift (12am to 8am)"},
	}

	Machines = []string{
		"SDL",
		"LHD",
		"Drill Machine",
		"Coal Cutter",
		"Conveyor Belt",
		"Pump",
		"Fan",
		OtherOption,
	}

	Categories = []string{
		"Electrical",
		"Mechanical",
		"Hydraulic",
		"Engine",
		"Structural",
		OtherOption,
	}

	Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}
)

// FieldErrors 字段级校验错误（field -> message）
type FieldErrors map[string]string

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// RecordDraft 数据录入表单提交的内容
type RecordDraft struct {
	Date          string   `json:"date"`
	Executive     string   `json:"executive"`
	Shift         string   `json:"shift"`
	Machine       string   `json:"machine"`
	MachineOther  string   `json:"machineOther,omitempty"`
	Category      string   `json:"category"`
	CategoryOther string   `json:"categoryOther,omitempty"`
	Description   string   `json:"description,omitempty"`
	DelayTime     *Hours   `json:"delayTime"`
	Priority      Priority `json:"priority"`
	SpareParts    string   `json:"spareParts,omitempty"`
	Resolution    string   `json:"resolution,omitempty"`

	// delayInvalid 提交了 delayTime 但为空白或无法解析
	delayInvalid bool
}

// UnmarshalJSON delayTime 为空白或非数字时不让整个请求体失败，留给 Resolve 报字段错误
func (d *RecordDraft) UnmarshalJSON(data []byte) error {
	type Alias RecordDraft
	aux := struct {
		*Alias
		DelayTime json.RawMessage `json:"delayTime"`
	}{Alias: (*Alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.DelayTime, d.delayInvalid = decodeDelayInput(aux.DelayTime)
	return nil
}

// Resolve 校验表单并生成待提交的记录（"Other" 被自由文本替换）
// 返回的记录尚未分配 id/timestamp
func (d RecordDraft) Resolve() (BreakdownRecord, FieldErrors) {
	errs := FieldErrors{}

	date := strings.TrimSpace(d.Date)
	if date == "" {
		errs["date"] = "Date is required"
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		errs["date"] = "Date must be in YYYY-MM-DD format"
	}
	if strings.TrimSpace(d.Executive) == "" {
		errs["executive"] = "Executive name is required"
	}
	if strings.TrimSpace(d.Shift) == "" {
		errs["shift"] = "Shift is required"
	}

	machine := strings.TrimSpace(d.Machine)
	switch {
	case machine == "":
		errs["machine"] = "Machine is required"
	case machine == OtherOption && strings.TrimSpace(d.MachineOther) == "":
		errs["machine"] = "Please specify the machine"
	case machine == OtherOption:
		machine = strings.TrimSpace(d.MachineOther)
	}

	category := strings.TrimSpace(d.Category)
	switch {
	case category == "":
		errs["category"] = "Category is required"
	case category == OtherOption && strings.TrimSpace(d.CategoryOther) == "":
		errs["category"] = "Please specify the category"
	case category == OtherOption:
		category = strings.TrimSpace(d.CategoryOther)
	}

	var delay Hours
	if d.delayInvalid || d.DelayTime == nil || !validHours(*d.DelayTime) {
		errs["delayTime"] = "Valid delay time is required"
	} else {
		delay = *d.DelayTime
	}

	if !d.Priority.Valid() {
		errs["priority"] = "Priority is required"
	}

	if !errs.Empty() {
		return BreakdownRecord{}, errs
	}

	return BreakdownRecord{
		Date:        date,
		Executive:   strings.TrimSpace(d.Executive),
		Shift:       strings.TrimSpace(d.Shift),
		Machine:     machine,
		Category:    category,
		Description: d.Description,
		DelayTime:   delay,
		Priority:    d.Priority,
		SpareParts:  d.SpareParts,
		Resolution:  d.Resolution,
	}, nil
}

func validHours(h Hours) bool {
	f := float64(h)
	return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// decodeDelayInput 解析表单中的 delayTime
// 缺省或 null 返回 (nil, false)；空白串、非数字返回 (nil, true)
func decodeDelayInput(raw json.RawMessage) (*Hours, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return nil, true
		}
		h, err := ParseHours(s)
		if err != nil {
			return nil, true
		}
		return &h, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, true
	}
	h := Hours(f)
	return &h, false
}

// RecordPatch 更新操作提交的字段（nil 表示不修改）
type RecordPatch struct {
	Date        *string   `json:"date,omitempty"`
	Executive   *string   `json:"executive,omitempty"`
	Shift       *string   `json:"shift,omitempty"`
	Machine     *string   `json:"machine,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	DelayTime   *Hours    `json:"delayTime,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	SpareParts  *string   `json:"spareParts,omitempty"`
	Resolution  *string   `json:"resolution,omitempty"`

	delayInvalid bool
}

// UnmarshalJSON 同 RecordDraft：无效的 delayTime 由 Validate 报告
func (p *RecordPatch) UnmarshalJSON(data []byte) error {
	type Alias RecordPatch
	aux := struct {
		*Alias
		DelayTime json.RawMessage `json:"delayTime"`
	}{Alias: (*Alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.DelayTime, p.delayInvalid = decodeDelayInput(aux.DelayTime)
	return nil
}

// Empty 是否没有任何字段
func (p RecordPatch) Empty() bool {
	return p.Date == nil && p.Executive == nil && p.Shift == nil && p.Machine == nil &&
		p.Category == nil && p.Description == nil && p.DelayTime == nil && p.Priority == nil &&
		p.SpareParts == nil && p.Resolution == nil && !p.delayInvalid
}

// Validate 只校验提交了的字段；必填字段不能被清空
func (p RecordPatch) Validate() FieldErrors {
	errs := FieldErrors{}
	if p.Date != nil {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(*p.Date)); err != nil {
			errs["date"] = "Date is required"
		}
	}
	required := map[string]*string{
		"executive": p.Executive,
		"shift":     p.Shift,
		"machine":   p.Machine,
		"category":  p.Category,
	}
	messages := map[string]string{
		"executive": "Executive name is required",
		"shift":     "Shift is required",
		"machine":   "Machine is required",
		"category":  "Category is required",
	}
	for field, v := range required {
		if v != nil && strings.TrimSpace(*v) == "" {
			errs[field] = messages[field]
		}
	}
	if p.delayInvalid || (p.DelayTime != nil && !validHours(*p.DelayTime)) {
		errs["delayTime"] = "Valid delay time is required"
	}
	if p.Priority != nil && !p.Priority.Valid() {
		errs["priority"] = "Priority is required"
	}
	return errs
}

// Apply 将 patch 合并到记录上；id、timestamp、createdAt 保持不变
func (p RecordPatch) Apply(r BreakdownRecord, now time.Time) BreakdownRecord {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Executive != nil {
		r.Executive = *p.Executive
	}
	if p.Shift != nil {
		r.Shift = *p.Shift
	}
	if p.Machine != nil {
		r.Machine = *p.Machine
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.DelayTime != nil {
		r.DelayTime = *p.DelayTime
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.SpareParts != nil {
		r.SpareParts = *p.SpareParts
	}
	if p.Resolution != nil {
		r.Resolution = *p.Resolution
	}
	r.UpdatedAt = StoreTime(now)
	return r
}

// sparePartsSeparators 备件列表分隔符
const sparePartsSeparators = ",;|\n"

// ParseSpareParts 将备件字段拆分为去空白、非空的列表
func ParseSpareParts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(sparePartsSeparators, r)
	})
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return parts
}
