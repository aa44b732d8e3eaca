package models

import "fmt"

type TaskStatus string

const (
	TaskStatusDraft      TaskStatus = "DRAFT"
	TaskStatusApproved   TaskStatus = "APPROVED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

var taskStatusValues = map[string]TaskStatus{
	"DRAFT":       TaskStatusDraft,
	"APPROVED":    TaskStatusApproved,
	"IN_PROGRESS": TaskStatusInProgress,
	"COMPLETED":   TaskStatusCompleted,
	"CANCELLED":   TaskStatusCancelled,
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	v, ok := taskStatusValues[s]
	if !ok {
		return "", fmt.Errorf("%s is not a valid task status", s)
	}
	return v, nil
}

func (s TaskStatus) IsValid() bool {
	_, ok := taskStatusValues[string(s)]
	return ok
}

type TaskActionType string

const (
	TaskActionNoChange TaskActionType = "NO_CHANGE"
	TaskActionRepaired TaskActionType = "REPAIRED"
	TaskActionReplaced TaskActionType = "REPLACED"
)

var taskActionTypeValues = map[string]TaskActionType{
	"NO_CHANGE": TaskActionNoChange,
	"REPAIRED":  TaskActionRepaired,
	"REPLACED":  TaskActionReplaced,
}

func ParseTaskActionType(s string) (TaskActionType, error) {
	v, ok := taskActionTypeValues[s]
	if !ok {
		return "", fmt.Errorf("%s is not a valid action type", s)
	}
	return v, nil
}

func (a TaskActionType) IsValid() bool {
	_, ok := taskActionTypeValues[string(a)]
	return ok
}

type AllocationStatus string

const (
	AllocationStatusReserved AllocationStatus = "reserved"
	AllocationStatusConsumed AllocationStatus = "consumed"
	AllocationStatusReleased AllocationStatus = "released"
)

func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusReserved, AllocationStatusConsumed, AllocationStatusReleased:
		return true
	}
	return false
}

type JobCardStatus string

const (
	JobCardStatusOpen   JobCardStatus = "Open"
	JobCardStatusClosed JobCardStatus = "Closed"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "Draft"
	InvoiceStatusIssued InvoiceStatus = "Issued"
	InvoiceStatusPaid   InvoiceStatus = "Paid"
)

type SubscriptionPlan string

const (
	SubscriptionPlanStarter SubscriptionPlan = "Starter"
	SubscriptionPlanPro     SubscriptionPlan = "Pro"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "Trial"
	SubscriptionStatusActive    SubscriptionStatus = "Active"
	SubscriptionStatusPastDue   SubscriptionStatus = "PastDue"
	SubscriptionStatusCancelled SubscriptionStatus = "Cancelled"
)

var subscriptionStatusValues = map[string]SubscriptionStatus{
	"Trial":     SubscriptionStatusTrial,
	"Active":    SubscriptionStatusActive,
	"PastDue":   SubscriptionStatusPastDue,
	"Cancelled": SubscriptionStatusCancelled,
}

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	v, ok := subscriptionStatusValues[s]
	if !ok {
		return "", fmt.Errorf("%s is not a valid subscription status", s)
	}
	return v, nil
}

type UserRole string

const (
	UserRoleAdmin UserRole = "A" // platform admin
	UserRoleOwner UserRole = "O" // garage owner
	UserRoleStaff UserRole = "S" // mechanic / front desk
)

func (r UserRole) Label() string {
	switch r {
	case UserRoleAdmin:
		return "Admin"
	case UserRoleOwner:
		return "Owner"
	default:
		return "Staff"
	}
}

type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "PENDING"
	SyncStatusProcessing SyncStatus = "PROCESSING"
	SyncStatusSucceeded  SyncStatus = "SUCCEEDED"
	SyncStatusFailed     SyncStatus = "FAILED"
	SyncStatusDead       SyncStatus = "DEAD"
)
