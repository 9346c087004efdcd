package storage

// Migration is one ordered schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations lists every schema change in application order. The DDL is
// kept to the subset understood by both SQLite and PostgreSQL: TEXT ids,
// DOUBLE PRECISION numbers, TIMESTAMP columns holding UTC values.
var Migrations = []Migration{
	{Version: 1, Name: "core", SQL: schemaCore},
	{Version: 2, Name: "fleet", SQL: schemaFleet},
	{Version: 3, Name: "forms", SQL: schemaForms},
	{Version: 4, Name: "telematics", SQL: schemaTelematics},
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`

const schemaCore = `
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE audit_log (
    id TEXT PRIMARY KEY,
    actor_id TEXT NOT NULL,
    actor_type TEXT NOT NULL,
    action TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    changes TEXT,
    request_id TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_audit_entity ON audit_log(entity_type, entity_id);
CREATE INDEX idx_audit_actor ON audit_log(actor_id);
CREATE INDEX idx_audit_created_at ON audit_log(created_at);

CREATE TABLE sequences (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);
`

const schemaFleet = `
CREATE TABLE assets (
    id TEXT PRIMARY KEY,
    asset_tag TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    asset_type TEXT NOT NULL,
    make TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    year INTEGER NOT NULL DEFAULT 0,
    vin TEXT NOT NULL DEFAULT '',
    license_plate TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    odometer DOUBLE PRECISION NOT NULL DEFAULT 0,
    engine_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_assets_status ON assets(status);

CREATE TABLE parts (
    id TEXT PRIMARY KEY,
    part_number TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    unit_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    quantity_on_hand INTEGER NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0),
    reorder_point INTEGER NOT NULL DEFAULT 0,
    bin_location TEXT NOT NULL DEFAULT '',
    vendor TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE work_orders (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL UNIQUE,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL,
    status TEXT NOT NULL,
    assigned_to TEXT NOT NULL DEFAULT '',
    due_date TIMESTAMP,
    source TEXT NOT NULL,
    source_ref TEXT NOT NULL DEFAULT '',
    labor_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    labor_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    parts_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    completed_at TIMESTAMP,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_work_orders_asset ON work_orders(asset_id, status);

CREATE TABLE work_order_parts (
    id TEXT PRIMARY KEY,
    work_order_id TEXT NOT NULL REFERENCES work_orders(id),
    part_id TEXT NOT NULL REFERENCES parts(id),
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    unit_cost DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE inventory_transactions (
    id TEXT PRIMARY KEY,
    part_id TEXT NOT NULL REFERENCES parts(id),
    delta INTEGER NOT NULL,
    reason TEXT NOT NULL,
    work_order_id TEXT NOT NULL DEFAULT '',
    actor_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_inventory_part ON inventory_transactions(part_id);

CREATE TABLE inspections (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    inspector_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    odometer DOUBLE PRECISION NOT NULL DEFAULT 0,
    items TEXT NOT NULL,
    result TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    form_submission_id TEXT NOT NULL DEFAULT '',
    work_order_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_inspections_asset ON inspections(asset_id);

CREATE TABLE maintenance_schedules (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    name TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    interval_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
    interval_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_completed_at TIMESTAMP NOT NULL,
    last_odometer DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_engine_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    open_work_order_id TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_schedules_asset ON maintenance_schedules(asset_id);

CREATE TABLE fuel_entries (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    filled_at TIMESTAMP NOT NULL,
    quantity DOUBLE PRECISION NOT NULL,
    unit TEXT NOT NULL,
    total_cost DOUBLE PRECISION NOT NULL,
    odometer DOUBLE PRECISION NOT NULL DEFAULT 0,
    vendor TEXT NOT NULL DEFAULT '',
    full_tank BOOLEAN NOT NULL DEFAULT FALSE,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_fuel_asset ON fuel_entries(asset_id, filled_at);

CREATE TABLE documents (
    id TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size_bytes BIGINT NOT NULL,
    sha256 TEXT NOT NULL,
    storage_key TEXT NOT NULL UNIQUE,
    uploaded_by TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_documents_entity ON documents(entity_type, entity_id);
`

const schemaForms = `
CREATE TABLE forms (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1,
    current_version INTEGER NOT NULL DEFAULT 0,
    fields TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE form_versions (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL REFERENCES forms(id),
    version INTEGER NOT NULL,
    fields TEXT NOT NULL,
    checksum TEXT NOT NULL,
    published_by TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP NOT NULL,
    UNIQUE (form_id, version)
);

CREATE TABLE form_submissions (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL REFERENCES forms(id),
    form_version INTEGER NOT NULL,
    asset_id TEXT NOT NULL DEFAULT '',
    answers TEXT NOT NULL,
    submitted_by TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_submissions_form ON form_submissions(form_id, form_version);
`

const schemaTelematics = `
CREATE TABLE geofences (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    shape TEXT NOT NULL,
    center_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
    center_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
    radius_m DOUBLE PRECISION NOT NULL DEFAULT 0,
    vertices TEXT NOT NULL,
    alert_on_enter BOOLEAN NOT NULL DEFAULT FALSE,
    alert_on_exit BOOLEAN NOT NULL DEFAULT FALSE,
    recipients TEXT NOT NULL,
    dwell_minutes INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE asset_locations (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    lat DOUBLE PRECISION NOT NULL,
    lng DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_locations_asset ON asset_locations(asset_id, recorded_at);

CREATE TABLE geofence_states (
    asset_id TEXT NOT NULL,
    geofence_id TEXT NOT NULL,
    inside BOOLEAN NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (asset_id, geofence_id)
);

CREATE TABLE geofence_events (
    id TEXT PRIMARY KEY,
    geofence_id TEXT NOT NULL REFERENCES geofences(id),
    asset_id TEXT NOT NULL REFERENCES assets(id),
    event_type TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lng DOUBLE PRECISION NOT NULL,
    occurred_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_geofence_events ON geofence_events(geofence_id, occurred_at);

CREATE TABLE dtc_events (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL REFERENCES assets(id),
    code TEXT NOT NULL,
    dtc_system TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    odometer DOUBLE PRECISION NOT NULL DEFAULT 0,
    work_order_id TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_dtc_asset ON dtc_events(asset_id, recorded_at);
`
