package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common costing errors
// 共通の原価計算エラー定義

var (
	// ErrNotFound is returned when a referenced product, vendor, customer or claim doesn't exist
	// 参照先が存在しない場合のエラー
	ErrNotFound = errors.New("対象が見つかりません")

	// ErrInsufficientStock is returned when an operation would drive stock below zero
	// 在庫不足の場合のエラー
	ErrInsufficientStock = errors.New("在庫が不足しています")

	// ErrInvalidInput is returned for non-positive quantities, negative costs and similar caller bugs
	// 入力値が不正な場合のエラー
	ErrInvalidInput = errors.New("入力値が不正です")

	// ErrVersionMismatch is returned when the stored state moved on since it was loaded
	// 楽観的ロック失敗時のエラー
	ErrVersionMismatch = errors.New("バージョンが一致しません。他の操作によって更新されています")

	// ErrDuplicateProduct is returned when trying to create a product whose ID, SKU or barcode is taken
	// 既に存在する商品を作成しようとした場合のエラー
	ErrDuplicateProduct = errors.New("商品は既に存在します")

	// ErrClaimAlreadyResolved is returned when resolving a claim twice
	// 解決済みクレームを再解決しようとした場合のエラー
	ErrClaimAlreadyResolved = errors.New("クレームは既に解決済みです")

	// ErrStateNotFound is returned by stores that hold no state yet
	// 保存済み状態が存在しない場合のエラー
	ErrStateNotFound = errors.New("保存済みの状態がありません")
)

// NotFoundError names the missing entity
// 見つからなかったエンティティを表現
type NotFoundError struct {
	Entity string `json:"entity"` // エンティティ種別
	ID     string `json:"id"`     // ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s が見つかりません", e.Entity, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InsufficientStockError carries the offending product and the shortfall
// 在庫不足の商品と不足数量を保持
type InsufficientStockError struct {
	ProductID string          `json:"product_id"` // 商品ID
	Requested decimal.Decimal `json:"requested"`  // 要求数量
	Available decimal.Decimal `json:"available"`  // 現在庫
}

// Shortfall returns how much stock is missing
// 不足数量を返す
func (e InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("商品 %s の在庫が不足しています (要求: %s, 在庫: %s, 不足: %s)",
		e.ProductID, e.Requested.String(), e.Available.String(), e.Shortfall().String())
}

func (e InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// BusinessRuleError represents a business rule violation
// ビジネスルール違反を表現
type BusinessRuleError struct {
	Rule    string `json:"rule"`    // ルール名
	Message string `json:"message"` // エラーメッセージ
	Context string `json:"context"` // コンテキスト情報
}

func (e BusinessRuleError) Error() string {
	return fmt.Sprintf("ビジネスルール違反 [%s]: %s (コンテキスト: %s)", e.Rule, e.Message, e.Context)
}

// ConcurrencyError represents a lost optimistic-lock race
// 同時実行関連のエラーを表現
type ConcurrencyError struct {
	Operation string `json:"operation"` // 操作名
	Resource  string `json:"resource"`  // リソース
	Message   string `json:"message"`   // エラーメッセージ
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("同時実行エラー [%s:%s]: %s", e.Operation, e.Resource, e.Message)
}

func (e ConcurrencyError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewInsufficientStockError creates a new insufficient-stock error
// 新しい在庫不足エラーを作成
func NewInsufficientStockError(productID string, requested, available decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewBusinessRuleError creates a new business rule error
// 新しいビジネスルールエラーを作成
func NewBusinessRuleError(rule, message, context string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// NewConcurrencyError creates a new concurrency error
// 新しい同時実行エラーを作成
func NewConcurrencyError(operation, resource, message string) *ConcurrencyError {
	return &ConcurrencyError{
		Operation: operation,
		Resource:  resource,
		Message:   message,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
