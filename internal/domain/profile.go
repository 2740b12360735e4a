// Package domain contains core domain types for the Crickmate coach.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Skill levels accepted at registration.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// ReferenceRole is the role used to break ties in free-text area search.
const ReferenceRole = "top order batsman"

// PlayingRoles lists every role recognised by the coach.
var PlayingRoles = []string{
	"top order batsman",
	"middle order batsman",
	"finisher",
	"all rounder",
	"wicket keeper batsman",
	"fast bowler",
	"medium bowler",
	"wrist spinner",
	"finger spinner",
}

var errInvalidProfile = errors.New("invalid profile")

// Profile represents a registered player.
type Profile struct {
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Age         int       `json:"age"`
	HeightCM    int       `json:"height_cm"`
	WeightKG    int       `json:"weight_kg"`
	SkillLevel  string    `json:"skill_level"`
	PlayingRole string    `json:"playing_role"`
	WeeklyDays  *int      `json:"weekly_days,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// AgeGroup returns the junior/adult bracket used by exercise prescriptions.
func (p *Profile) AgeGroup() string {
	switch {
	case p.Age <= 12:
		return "U13"
	case p.Age <= 14:
		return "U15"
	case p.Age <= 16:
		return "U17"
	case p.Age <= 18:
		return "U19"
	default:
		return "Adult"
	}
}

// BMI returns body mass index rounded to two decimals, or 0 without a height.
func (p *Profile) BMI() float64 {
	if p.HeightCM <= 0 {
		return 0
	}
	m := float64(p.HeightCM) / 100
	return math.Round(float64(p.WeightKG)/(m*m)*100) / 100
}

// BMIGroup returns the body composition bracket used by exercise prescriptions.
func (p *Profile) BMIGroup() string {
	bmi := p.BMI()
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Athletic Ideal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// Role returns the normalized playing role.
func (p *Profile) Role() string {
	return strings.ToLower(strings.TrimSpace(p.PlayingRole))
}

// ValidateProfile checks registration input and returns a user-facing error.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: missing profile", errInvalidProfile)
	}
	if err := checkRange("age", p.Age, 8, 60); err != nil {
		return err
	}
	if err := checkRange("height_cm", p.HeightCM, 100, 230); err != nil {
		return err
	}
	if err := checkRange("weight_kg", p.WeightKG, 25, 200); err != nil {
		return err
	}
	switch strings.ToLower(p.SkillLevel) {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
	default:
		return fmt.Errorf("%w: skill_level not in valid value list", errInvalidProfile)
	}
	if !IsKnownRole(p.PlayingRole) {
		return fmt.Errorf("%w: playing_role not in valid value list", errInvalidProfile)
	}
	if p.WeeklyDays != nil {
		if err := checkRange("weekly_days", *p.WeeklyDays, 0, 7); err != nil {
			return err
		}
	}
	return nil
}

// IsInvalidProfile reports whether err came from ValidateProfile.
func IsInvalidProfile(err error) bool {
	return errors.Is(err, errInvalidProfile)
}

// IsKnownRole reports whether role is one of PlayingRoles.
func IsKnownRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range PlayingRoles {
		if r == role {
			return true
		}
	}
	return false
}

func checkRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s outside valid range", errInvalidProfile, field)
	}
	return nil
}
