package mysql

// -----------------------------------------------------------------------------
// HOTELS
// -----------------------------------------------------------------------------

const hotelColumns = `id, code, name, city, address, phone, currency, timezone, active, admin_email, created_at, updated_at`

const insertHotelSQL = `
INSERT INTO hotels
  (code, name, city, address, phone, currency, timezone, active, admin_email)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateHotelSQL = `
UPDATE hotels SET
  name        = ?,
  city        = ?,
  address     = ?,
  phone       = ?,
  currency    = ?,
  timezone    = ?,
  active      = ?,
  admin_email = ?
WHERE id = ?
`

const getHotelSQL = `SELECT ` + hotelColumns + ` FROM hotels WHERE id = ?`

const listHotelsSQL = `SELECT ` + hotelColumns + ` FROM hotels ORDER BY name, id`

// -----------------------------------------------------------------------------
// ROOM TYPES
// -----------------------------------------------------------------------------

const roomTypeColumns = `id, hotel_id, code, name, base_price, capacity_adults, capacity_children,
  total_rooms, bed_type, description, created_at, updated_at`

const insertRoomTypeSQL = `
INSERT INTO room_types
  (hotel_id, code, name, base_price, capacity_adults, capacity_children, total_rooms, bed_type, description)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateRoomTypeSQL = `
UPDATE room_types SET
  code              = ?,
  name              = ?,
  base_price        = ?,
  capacity_adults   = ?,
  capacity_children = ?,
  total_rooms       = ?,
  bed_type          = ?,
  description       = ?
WHERE id = ? AND hotel_id = ?
`

const getRoomTypeSQL = `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = ? AND hotel_id = ?`

const listRoomTypesSQL = `SELECT ` + roomTypeColumns + ` FROM room_types WHERE hotel_id = ? ORDER BY id DESC`

const deleteRoomTypeInventorySQL = `DELETE FROM inventory_days WHERE hotel_id = ? AND room_type_id = ?`

const deleteRoomTypeSQL = `DELETE FROM room_types WHERE id = ? AND hotel_id = ?`

// -----------------------------------------------------------------------------
// INVENTORY
// -----------------------------------------------------------------------------

// NULL parameters keep the stored value, so a patch only touches the fields it carries.
const upsertInventoryDaySQL = `
INSERT INTO inventory_days
  (hotel_id, room_type_id, day, price, allotment, stop_sell)
VALUES
  (?, ?, ?, ?, ?, COALESCE(?, 0))
ON DUPLICATE KEY UPDATE
  price     = COALESCE(?, inventory_days.price),
  allotment = COALESCE(?, inventory_days.allotment),
  stop_sell = COALESCE(?, inventory_days.stop_sell)
`

const listOverridesSQL = `
SELECT hotel_id, room_type_id, day, price, allotment, stop_sell
FROM inventory_days
WHERE hotel_id = ? AND room_type_id = ? AND day >= ? AND day < ?
ORDER BY day
`

// -----------------------------------------------------------------------------
// RESERVATIONS
// -----------------------------------------------------------------------------

const reservationColumns = `id, hotel_id, room_type_id, guest_id, guest_name, check_in, check_out, adults, children,
  rooms, channel, status, total_price, deposit_amount, payment_method, payment_status, arrival_time,
  notes, created_at, updated_at`

const insertReservationSQL = `
INSERT INTO reservations
  (hotel_id, room_type_id, guest_id, guest_name, check_in, check_out, adults, children, rooms, channel,
   status, total_price, deposit_amount, payment_method, payment_status, arrival_time, notes)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateReservationSQL = `
UPDATE reservations SET
  room_type_id   = ?,
  guest_id       = ?,
  guest_name     = ?,
  check_in       = ?,
  check_out      = ?,
  adults         = ?,
  children       = ?,
  rooms          = ?,
  channel        = ?,
  status         = ?,
  total_price    = ?,
  deposit_amount = ?,
  payment_method = ?,
  payment_status = ?,
  arrival_time   = ?,
  notes          = ?
WHERE id = ? AND hotel_id = ?
`

const getReservationSQL = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? AND hotel_id = ?`

const deleteReservationSQL = `DELETE FROM reservations WHERE id = ? AND hotel_id = ?`

// Half-open overlap: an existing stay ending on the query start does not collide.
const findOverlappingSQL = `
SELECT id, check_in, check_out, rooms
FROM reservations
WHERE hotel_id = ?
  AND room_type_id = ?
  AND status <> 'cancelled'
  AND check_in < ?
  AND check_out > ?
  AND (? = 0 OR id <> ?)
`

const hasActiveReservationsSQL = `
SELECT EXISTS(
  SELECT 1 FROM reservations
  WHERE hotel_id = ? AND room_type_id = ? AND status <> 'cancelled'
)
`

// Callers pass the LIKE pattern once per column.
const guestFilterSQL = `(guest_name LIKE ? OR guest_id IN (
  SELECT id FROM guests WHERE name LIKE ? OR email LIKE ? OR phone LIKE ?))`

const listGuestReservationsSQL = `SELECT ` + reservationColumns + ` FROM reservations
WHERE hotel_id = ? AND guest_id = ?
ORDER BY check_in DESC, id DESC`

// -----------------------------------------------------------------------------
// GUESTS
// -----------------------------------------------------------------------------

const guestColumns = `id, hotel_id, name, email, phone, country, document_no, vip, blacklist,
  marketing_opt_in, notes, created_at, updated_at`

const insertGuestSQL = `
INSERT INTO guests
  (hotel_id, name, email, phone, country, document_no, vip, blacklist, marketing_opt_in, notes)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// updated_at is bumped explicitly so a refreshed guest ranks first in search.
const updateGuestSQL = `
UPDATE guests SET
  name             = ?,
  email            = ?,
  phone            = ?,
  country          = ?,
  document_no      = ?,
  vip              = ?,
  blacklist        = ?,
  marketing_opt_in = ?,
  notes            = ?,
  updated_at       = CURRENT_TIMESTAMP
WHERE id = ? AND hotel_id = ?
`

const getGuestSQL = `SELECT ` + guestColumns + ` FROM guests WHERE id = ? AND hotel_id = ?`

const findGuestByContactSQL = `SELECT ` + guestColumns + ` FROM guests
WHERE hotel_id = ? AND ((? <> '' AND email = ?) OR (? <> '' AND phone = ?))
ORDER BY updated_at DESC, id DESC
LIMIT 1`

const searchGuestsSQL = `SELECT ` + guestColumns + ` FROM guests
WHERE hotel_id = ? AND (name LIKE ? OR email LIKE ? OR phone LIKE ?)
ORDER BY updated_at DESC, id DESC
LIMIT ?`
