// Package domain defines the persistence models for goals, weekly check-ins,
// diary entries, and notes. These types are mapped with GORM and form the
// core data layer of the habit-tracking application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DaysPerWeek is the fixed length of a WeekStates value.
const DaysPerWeek = 7

// WeekStates is one boolean per day of the week, Monday-first. It is stored
// as a JSON array in a single TEXT column so the ordered sequence round-trips
// exactly through the database.
type WeekStates [DaysPerWeek]bool

// Value implements driver.Valuer, serializing the week to a JSON array.
func (w WeekStates) Value() (driver.Value, error) {
	b, err := json.Marshal([DaysPerWeek]bool(w))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. It accepts TEXT or BLOB column data and
// rejects arrays that are not exactly seven booleans.
func (w *WeekStates) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = WeekStates{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("weekstates: cannot scan %T", src)
	}
	var days []bool
	if err := json.Unmarshal(raw, &days); err != nil {
		return err
	}
	if len(days) != DaysPerWeek {
		return errors.New("weekstates: expected exactly 7 values")
	}
	copy(w[:], days)
	return nil
}

// CheckedDays returns how many days of the week are marked done.
func (w WeekStates) CheckedDays() int {
	n := 0
	for _, d := range w {
		if d {
			n++
		}
	}
	return n
}

// Goal represents a habit a user tracks week by week. Each goal carries the
// weekly target (days per week) the user aims for; check-ins snapshot that
// target at write time so history survives later edits.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the goal owner; indexed for efficient retrieval.
//   - Title: human-readable goal name.
//   - WeeklyTarget: days per week the user aims to complete (1–7).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Goal struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_goals"`
	Title        string         `json:"title"         gorm:"type:varchar(255);not null"`
	WeeklyTarget int            `json:"weekly_target" gorm:"not null;check:weekly_target BETWEEN 1 AND 7"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Goal.
func (Goal) TableName() string { return "goals" }

// WeeklyCheckIn records the per-day completion states of one goal for one
// calendar week. There is exactly one live row per (user, goal, week start);
// the unique index is the sole serialization point for concurrent creates.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - GoalID: foreign key to the owning goal (part of the natural key).
//   - UserID: owner; every read and write is scoped to this value.
//   - WeekStart: the Monday (UTC midnight) identifying the week.
//   - WeeklyTarget: snapshot of the goal's target at write time (1–7).
//   - States: seven booleans, Monday-first.
//   - UpdatedAt: server-assigned on every accepted write; doubles as the
//     optimistic-concurrency version token.
type WeeklyCheckIn struct {
	ID           string         `json:"id"              gorm:"type:char(36);primaryKey"`
	GoalID       string         `json:"goal_id"         gorm:"type:char(36);not null;uniqueIndex:ux_checkin_key,priority:2"`
	UserID       string         `json:"user_id"         gorm:"type:varchar(64);not null;uniqueIndex:ux_checkin_key,priority:1"`
	WeekStart    time.Time      `json:"week_start"      gorm:"not null;uniqueIndex:ux_checkin_key,priority:3"`
	WeeklyTarget int            `json:"weekly_target"   gorm:"not null;check:weekly_target BETWEEN 1 AND 7"`
	States       WeekStates     `json:"checkbox_states" gorm:"type:text;not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"               gorm:"index"`

	// Goal is the parent goal. Check-ins are cascade-deleted if their goal
	// row is physically removed by maintenance tooling.
	Goal Goal `json:"-" gorm:"foreignKey:GoalID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for WeeklyCheckIn.
func (WeeklyCheckIn) TableName() string { return "weekly_checkins" }

// Diary entry kinds.
const (
	DiaryKindDiary    = "diary"
	DiaryKindMigraine = "migraine"
)

// DiaryEntry is a dated journal record. Migraine entries additionally carry
// a severity in [1,10]; plain diary entries leave it unset.
type DiaryEntry struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_diary,priority:1"`
	EntryDate time.Time      `json:"entry_date" gorm:"not null;index:idx_user_diary,priority:2"`
	Kind      string         `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('diary','migraine')"`
	Severity  *int           `json:"severity,omitempty"` // migraine entries only
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for DiaryEntry.
func (DiaryEntry) TableName() string { return "diary_entries" }

// Note is a free-form project note. Titles are auto-generated from the body
// when the client leaves them blank.
type Note struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_notes"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }
