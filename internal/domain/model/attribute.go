package model

import (
	"errors"
	"strconv"
	"time"
	"unicode/utf8"
)

type AttributeValueType string

const (
	ValueTypePricePerKg    AttributeValueType = "PRICE/KG"
	ValueTypePricePerPiece AttributeValueType = "PRICE/PIECE"
	ValueTypePlace         AttributeValueType = "PLACE"
	// 在庫数
	ValueTypeQuantity  AttributeValueType = "QUANTITY"
	ValueTypeDate      AttributeValueType = "DATE"
	ValueTypeWeight    AttributeValueType = "WEIGHT"
	ValueTypeAvailable AttributeValueType = "AVAILABLE"
)

func (t AttributeValueType) IsValid() bool {
	switch t {
	case ValueTypePricePerKg, ValueTypePricePerPiece, ValueTypePlace,
		ValueTypeQuantity, ValueTypeDate, ValueTypeWeight, ValueTypeAvailable:
		return true
	}
	return false
}

// IsPrice は単価を表す型か。
func (t AttributeValueType) IsPrice() bool {
	return t == ValueTypePricePerKg || t == ValueTypePricePerPiece
}

// QuantityType は明細に残す数量の単位。
func (t AttributeValueType) QuantityType() string {
	if t == ValueTypePricePerKg {
		return "KG"
	}
	return "PIECE"
}

// IsNumeric は min/max で比較できる型か。
func (t AttributeValueType) IsNumeric() bool {
	return t.IsPrice() || t == ValueTypeQuantity || t == ValueTypeWeight
}

var ErrInvalidAttributeValue = errors.New("invalid attribute value")

// MaxAttributeValueLen は属性値の最大文字数。
const MaxAttributeValueLen = 50

// Validate は型に合った値か。空文字は呼び出し側で扱う。
func (t AttributeValueType) Validate(v string) error {
	if utf8.RuneCountInString(v) > MaxAttributeValueLen {
		return ErrInvalidAttributeValue
	}
	var err error
	switch t {
	case ValueTypePricePerKg, ValueTypePricePerPiece, ValueTypeWeight:
		_, err = ParseAmount(v)
	case ValueTypeQuantity:
		_, err = ParseStock(v)
	case ValueTypeDate:
		_, err = time.Parse("2006-01-02", v)
	case ValueTypeAvailable:
		_, err = strconv.ParseBool(v)
	case ValueTypePlace:
	default:
		err = ErrInvalidAttributeValue
	}
	if err != nil {
		return ErrInvalidAttributeValue
	}
	return nil
}

type Attribute struct {
	ID        int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string             `gorm:"type:varchar(50);not null" json:"name"`
	ValueType AttributeValueType `gorm:"type:varchar(20);not null;index" json:"value_type"`
	CreatedAt time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 商品ごとの属性値（EAV）
type AttributeValue struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;uniqueIndex:idx_attr_value_product_attr" json:"product_id"`
	AttributeID int64     `gorm:"not null;uniqueIndex:idx_attr_value_product_attr;index" json:"attribute_id"`
	Value       string    `gorm:"type:varchar(50);not null;default:''" json:"value"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Attribute Attribute `gorm:"foreignKey:AttributeID" json:"attribute"`
}
