package metastore

import (
	"fmt"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/datakite/resampled/pkg/types"
)

// encodeChartPoints encodes chart points as a DynamoDB list of maps with
// numeric density attributes, preserving full decimal precision. A nil slice
// encodes as NULL (processing pending or failed).
func encodeChartPoints(points []types.ChartPoint) ddbtypes.AttributeValue {
	if points == nil {
		return &ddbtypes.AttributeValueMemberNULL{Value: true}
	}
	list := make([]ddbtypes.AttributeValue, len(points))
	for i, p := range points {
		list[i] = &ddbtypes.AttributeValueMemberM{Value: map[string]ddbtypes.AttributeValue{
			"label":     &ddbtypes.AttributeValueMemberS{Value: p.Label},
			"raw":       &ddbtypes.AttributeValueMemberN{Value: p.Raw.String()},
			"resampled": &ddbtypes.AttributeValueMemberN{Value: p.Resampled.String()},
		}}
	}
	return &ddbtypes.AttributeValueMemberL{Value: list}
}

// decodeChartPoints normalizes the stored list back into plain chart points.
// Absent or NULL attributes decode as nil.
func decodeChartPoints(av ddbtypes.AttributeValue) ([]types.ChartPoint, error) {
	switch v := av.(type) {
	case nil:
		return nil, nil
	case *ddbtypes.AttributeValueMemberNULL:
		return nil, nil
	case *ddbtypes.AttributeValueMemberL:
		points := make([]types.ChartPoint, 0, len(v.Value))
		for i, entry := range v.Value {
			m, ok := entry.(*ddbtypes.AttributeValueMemberM)
			if !ok {
				return nil, fmt.Errorf("chartDataPoints[%d]: unexpected attribute type %T", i, entry)
			}
			p := types.ChartPoint{}
			if s, ok := m.Value["label"].(*ddbtypes.AttributeValueMemberS); ok {
				p.Label = s.Value
			}
			var err error
			if p.Raw, err = decodeDensity(m.Value["raw"]); err != nil {
				return nil, fmt.Errorf("chartDataPoints[%d].raw: %w", i, err)
			}
			if p.Resampled, err = decodeDensity(m.Value["resampled"]); err != nil {
				return nil, fmt.Errorf("chartDataPoints[%d].resampled: %w", i, err)
			}
			points = append(points, p)
		}
		return points, nil
	}
	return nil, fmt.Errorf("chartDataPoints: unexpected attribute type %T", av)
}

func decodeDensity(av ddbtypes.AttributeValue) (decimal.Decimal, error) {
	n, ok := av.(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected attribute type %T", av)
	}
	return decimal.NewFromString(n.Value)
}
