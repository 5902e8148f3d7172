// Package mysql implements domain.Store on database/sql with the MySQL driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

// MySQL server error numbers.
const (
	errDupEntry      = 1062
	errNoReferenced  = 1452 // foreign key target missing
	errRowReferenced = 1451 // row still referenced by a child
)

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
func valText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapErr turns driver errors the domain cares about into sentinels.
func mapErr(err error) error {
	var me *gomysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, me.Message)
	case errNoReferenced:
		return domain.ErrNotFound
	case errRowReferenced:
		return fmt.Errorf("%w: %s", domain.ErrRoomTypeInUse, me.Message)
	}
	return err
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects with the options the repo relies on: DATE columns parsed
// into UTC time.Time values.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// exists tells "row unchanged" apart from "row missing" after an UPDATE
// that affected nothing.
func (r *Repo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS("+query+")", args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repo) execUpdate(ctx context.Context, existsQuery string, existsArgs []any, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	ok, err := r.exists(ctx, existsQuery, existsArgs...)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// ---- hotels ----

type scanner interface {
	Scan(dest ...any) error
}

func scanHotel(s scanner) (domain.Hotel, error) {
	var h domain.Hotel
	err := s.Scan(&h.ID, &h.Code, &h.Name, &h.City, &h.Address, &h.Phone, &h.Currency,
		&h.Timezone, &h.Active, &h.AdminEmail, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (r *Repo) CreateHotel(ctx context.Context, h *domain.Hotel) error {
	res, err := r.db.ExecContext(ctx, insertHotelSQL,
		h.Code, h.Name, h.City, h.Address, h.Phone, h.Currency, h.Timezone, h.Active, h.AdminEmail)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetHotel(ctx, id)
	if err != nil {
		return err
	}
	*h = created
	return nil
}

func (r *Repo) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hotel{}, domain.ErrNotFound
		}
		return domain.Hotel{}, err
	}
	return h, nil
}

func (r *Repo) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	rows, err := r.db.QueryContext(ctx, listHotelsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateHotel(ctx context.Context, h domain.Hotel) error {
	return r.execUpdate(ctx, `SELECT 1 FROM hotels WHERE id = ?`, []any{h.ID},
		updateHotelSQL,
		h.Name, h.City, h.Address, h.Phone, h.Currency, h.Timezone, h.Active, h.AdminEmail, h.ID)
}

// ---- room types ----

func scanRoomType(s scanner) (domain.RoomType, error) {
	var rt domain.RoomType
	var desc sql.NullString
	err := s.Scan(&rt.ID, &rt.HotelID, &rt.Code, &rt.Name, &rt.BasePrice, &rt.CapacityAdults,
		&rt.CapacityChildren, &rt.TotalRooms, &rt.BedType, &desc, &rt.CreatedAt, &rt.UpdatedAt)
	rt.Description = desc.String
	return rt, err
}

func (r *Repo) CreateRoomType(ctx context.Context, rt *domain.RoomType) error {
	res, err := r.db.ExecContext(ctx, insertRoomTypeSQL,
		rt.HotelID, rt.Code, rt.Name, rt.BasePrice, rt.CapacityAdults, rt.CapacityChildren,
		rt.TotalRooms, rt.BedType, valText(rt.Description))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetRoomType(ctx, rt.HotelID, id)
	if err != nil {
		return err
	}
	*rt = created
	return nil
}

func (r *Repo) GetRoomType(ctx context.Context, hotelID, id int64) (domain.RoomType, error) {
	rt, err := scanRoomType(r.db.QueryRowContext(ctx, getRoomTypeSQL, id, hotelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RoomType{}, domain.ErrNotFound
		}
		return domain.RoomType{}, err
	}
	return rt, nil
}

func (r *Repo) ListRoomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, listRoomTypesSQL, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateRoomType(ctx context.Context, rt domain.RoomType) error {
	return r.execUpdate(ctx, `SELECT 1 FROM room_types WHERE id = ? AND hotel_id = ?`, []any{rt.ID, rt.HotelID},
		updateRoomTypeSQL,
		rt.Code, rt.Name, rt.BasePrice, rt.CapacityAdults, rt.CapacityChildren, rt.TotalRooms,
		rt.BedType, valText(rt.Description), rt.ID, rt.HotelID)
}

func (r *Repo) DeleteRoomType(ctx context.Context, hotelID, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteRoomTypeInventorySQL, hotelID, id); err != nil {
		return err
	}
	// cancelled reservations keep their row and lose the room type
	res, err := tx.ExecContext(ctx, deleteRoomTypeSQL, id, hotelID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// ---- inventory ----

func (r *Repo) ListOverrides(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time) ([]domain.InventoryDay, error) {
	rows, err := r.db.QueryContext(ctx, listOverridesSQL,
		hotelID, roomTypeID, calendar.Key(start), calendar.Key(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryDay
	for rows.Next() {
		var d domain.InventoryDay
		var price sql.NullFloat64
		var allotment sql.NullInt64
		if err := rows.Scan(&d.HotelID, &d.RoomTypeID, &d.Date, &price, &allotment, &d.StopSell); err != nil {
			return nil, err
		}
		d.Date = calendar.Day(d.Date)
		if price.Valid {
			p := price.Float64
			d.Price = &p
		}
		if allotment.Valid {
			a := int(allotment.Int64)
			d.Allotment = &a
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertInventoryDay(ctx context.Context, hotelID, roomTypeID int64, day time.Time, p domain.InventoryPatch) error {
	price, allotment, stopSell := valF64(p.Price), valInt(p.Allotment), valBool(p.StopSell)
	_, err := r.db.ExecContext(ctx, upsertInventoryDaySQL,
		hotelID, roomTypeID, calendar.Key(day), price, allotment, stopSell,
		price, allotment, stopSell)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// ---- reservations ----

func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		rv         domain.Reservation
		roomTypeID sql.NullInt64
		guestID    sql.NullInt64
		status     string
		notes      sql.NullString
	)
	err := s.Scan(&rv.ID, &rv.HotelID, &roomTypeID, &guestID, &rv.GuestName, &rv.CheckIn, &rv.CheckOut,
		&rv.Adults, &rv.Children, &rv.Rooms, &rv.Channel, &status, &rv.TotalPrice, &rv.DepositAmount,
		&rv.PaymentMethod, &rv.PaymentStatus, &rv.ArrivalTime, &notes, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}
	if roomTypeID.Valid {
		id := roomTypeID.Int64
		rv.RoomTypeID = &id
	}
	if guestID.Valid {
		id := guestID.Int64
		rv.GuestID = &id
	}
	rv.Status = domain.ReservationStatus(status)
	rv.Notes = notes.String
	rv.CheckIn, rv.CheckOut = calendar.Day(rv.CheckIn), calendar.Day(rv.CheckOut)
	return rv, nil
}

func reservationArgs(rv domain.Reservation) []any {
	return []any{
		valInt64(rv.RoomTypeID), valInt64(rv.GuestID), rv.GuestName, calendar.Key(rv.CheckIn), calendar.Key(rv.CheckOut),
		rv.Adults, rv.Children, rv.Rooms, rv.Channel, string(rv.Status), rv.TotalPrice,
		rv.DepositAmount, rv.PaymentMethod, rv.PaymentStatus, rv.ArrivalTime, valText(rv.Notes),
	}
}

func (r *Repo) CreateReservation(ctx context.Context, rv *domain.Reservation) error {
	args := append([]any{rv.HotelID}, reservationArgs(*rv)...)
	res, err := r.db.ExecContext(ctx, insertReservationSQL, args...)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetReservation(ctx, rv.HotelID, id)
	if err != nil {
		return err
	}
	*rv = created
	return nil
}

func (r *Repo) UpdateReservation(ctx context.Context, rv domain.Reservation) error {
	args := append(reservationArgs(rv), rv.ID, rv.HotelID)
	return r.execUpdate(ctx, `SELECT 1 FROM reservations WHERE id = ? AND hotel_id = ?`, []any{rv.ID, rv.HotelID},
		updateReservationSQL, args...)
}

func (r *Repo) DeleteReservation(ctx context.Context, hotelID, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteReservationSQL, id, hotelID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetReservation(ctx context.Context, hotelID, id int64) (domain.Reservation, error) {
	rv, err := scanReservation(r.db.QueryRowContext(ctx, getReservationSQL, id, hotelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, err
	}
	return rv, nil
}

func (r *Repo) ListReservations(ctx context.Context, f domain.ReservationFilter) (domain.ReservationsPage, error) {
	var (
		where []string
		args  []any
	)
	if f.HotelID != 0 {
		where = append(where, "hotel_id = ?")
		args = append(args, f.HotelID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, f.Channel)
	}
	if f.End != nil {
		where = append(where, "check_in <= ?")
		args = append(args, calendar.Key(*f.End))
	}
	if f.Start != nil {
		where = append(where, "check_out >= ?")
		args = append(args, calendar.Key(*f.Start))
	}
	if f.Guest != "" {
		like := likePattern(f.Guest)
		where = append(where, guestFilterSQL)
		args = append(args, like, like, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	if f.Page < 1 {
		f.Page = 1
	}
	page := domain.ReservationsPage{Page: f.Page}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations"+cond, args...).Scan(&page.Total); err != nil {
		return domain.ReservationsPage{}, err
	}

	q := "SELECT " + reservationColumns + " FROM reservations" + cond + " ORDER BY check_in DESC, id DESC"
	if f.Limit > 0 {
		page.Pages = (page.Total + f.Limit - 1) / f.Limit
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, (f.Page-1)*f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.ReservationsPage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := scanReservation(rows)
		if err != nil {
			return domain.ReservationsPage{}, err
		}
		page.Items = append(page.Items, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReservationsPage{}, err
	}
	return page, nil
}

func (r *Repo) FindOverlapping(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time, excludeID int64) ([]domain.Occupancy, error) {
	rows, err := r.db.QueryContext(ctx, findOverlappingSQL,
		hotelID, roomTypeID, calendar.Key(end), calendar.Key(start), excludeID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Occupancy
	for rows.Next() {
		var o domain.Occupancy
		if err := rows.Scan(&o.ID, &o.CheckIn, &o.CheckOut, &o.Rooms); err != nil {
			return nil, err
		}
		o.CheckIn, o.CheckOut = calendar.Day(o.CheckIn), calendar.Day(o.CheckOut)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) HasActiveReservations(ctx context.Context, hotelID, roomTypeID int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, hasActiveReservationsSQL, hotelID, roomTypeID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// ---- guests ----

// likePattern wraps q in wildcards with LIKE metacharacters escaped.
func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

func scanGuest(s scanner) (domain.Guest, error) {
	var (
		g     domain.Guest
		notes sql.NullString
	)
	err := s.Scan(&g.ID, &g.HotelID, &g.Name, &g.Email, &g.Phone, &g.Country, &g.DocumentNo,
		&g.VIP, &g.Blacklist, &g.MarketingOptIn, &notes, &g.CreatedAt, &g.UpdatedAt)
	g.Notes = notes.String
	return g, err
}

func guestArgs(g domain.Guest) []any {
	return []any{g.Name, g.Email, g.Phone, g.Country, g.DocumentNo, g.VIP, g.Blacklist, g.MarketingOptIn, valText(g.Notes)}
}

func (r *Repo) CreateGuest(ctx context.Context, g *domain.Guest) error {
	args := append([]any{g.HotelID}, guestArgs(*g)...)
	res, err := r.db.ExecContext(ctx, insertGuestSQL, args...)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetGuest(ctx, g.HotelID, id)
	if err != nil {
		return err
	}
	*g = created
	return nil
}

func (r *Repo) UpdateGuest(ctx context.Context, g domain.Guest) error {
	args := append(guestArgs(g), g.ID, g.HotelID)
	return r.execUpdate(ctx, `SELECT 1 FROM guests WHERE id = ? AND hotel_id = ?`, []any{g.ID, g.HotelID},
		updateGuestSQL, args...)
}

func (r *Repo) GetGuest(ctx context.Context, hotelID, id int64) (domain.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, getGuestSQL, id, hotelID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, err
}

func (r *Repo) FindGuestByContact(ctx context.Context, hotelID int64, email, phone string) (domain.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, findGuestByContactSQL, hotelID, email, email, phone, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, err
}

func (r *Repo) SearchGuests(ctx context.Context, hotelID int64, q string, limit int) ([]domain.Guest, error) {
	like := likePattern(q)
	rows, err := r.db.QueryContext(ctx, searchGuestsSQL, hotelID, like, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) ListGuestReservations(ctx context.Context, hotelID, guestID int64) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, listGuestReservationsSQL, hotelID, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		rv, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

var _ domain.Store = (*Repo)(nil)
