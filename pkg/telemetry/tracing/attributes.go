package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for depot spans.
const (
	AttrAssetID     = attribute.Key("depot.asset_id")
	AttrFormID      = attribute.Key("depot.form_id")
	AttrFormVersion = attribute.Key("depot.form_version")
	AttrWorkOrderID = attribute.Key("depot.work_order_id")
	AttrActorID     = attribute.Key("depot.actor_id")
	AttrRequestID   = attribute.Key("depot.request_id")
	AttrGenerated   = attribute.Key("depot.generated")
)
