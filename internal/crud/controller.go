// Package crud はテーブル単位の汎用 CRUD コントローラーと検索条件のコンパイラを提供します。
package crud

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/user-kit/internal/apperr"
	"github.com/yourusername/user-kit/internal/gate"
	"github.com/yourusername/user-kit/internal/logger"
	"github.com/yourusername/user-kit/internal/schema"
	"github.com/yourusername/user-kit/internal/store"
)

const passwordField = "password"

// Store は CRUD コントローラーが利用する永続化層です。
type Store interface {
	Describe(ctx context.Context, table string) (schema.Table, error)
	Paginate(ctx context.Context, q store.Query, page, limit int) ([]store.Row, int64, error)
	First(ctx context.Context, q store.Query) (store.Row, error)
	Find(ctx context.Context, table, pk string, id any) (store.Row, error)
	Insert(ctx context.Context, table string, data map[string]any, pk string) (any, error)
	Update(ctx context.Context, table, pk string, id any, data map[string]any) error
	Pluck(ctx context.Context, table, column, pk string, ids []any) ([]any, error)
	Destroy(ctx context.Context, table, pk string, ids []any) (int64, error)
}

// BeforeQueryHook を実装したリソースは、検索の実行直前に条件を追加できます。
type BeforeQueryHook interface {
	BeforeQuery(c *gin.Context, q *store.Query) error
}

// AfterQueryHook を実装したリソースは、検索結果を書き換えられます。
type AfterQueryHook interface {
	AfterQuery(c *gin.Context, rows []store.Row) ([]store.Row, error)
}

// Resource は CRUD 対象のテーブルとその設定です。
type Resource struct {
	Name     string
	Table    string
	Policy   gate.ControllerPolicy
	ReadOnly []string
	// Hooks は BeforeQueryHook / AfterQueryHook を任意で実装した値です。
	Hooks any
}

// Controller は1リソース分の CRUD ハンドラーです。
type Controller struct {
	res      Resource
	store    Store
	identity gate.Identity
	before   BeforeQueryHook
	after    AfterQueryHook
	logger   logger.Logger
}

// NewController は Controller を作成します。フックの有無はここで1度だけ判定します。
func NewController(res Resource, st Store, identity gate.Identity, log logger.Logger) *Controller {
	ctrl := &Controller{
		res:      res,
		store:    st,
		identity: identity,
		logger:   logger.Logger{Logger: log.Component("crud").With().Str("resource", res.Name).Logger()},
	}
	if h, ok := res.Hooks.(BeforeQueryHook); ok {
		ctrl.before = h
	}
	if h, ok := res.Hooks.(AfterQueryHook); ok {
		ctrl.after = h
	}
	return ctrl
}

// Resource は登録されているリソース定義を返します。
func (ctrl *Controller) Resource() Resource {
	return ctrl.res
}

// Action はルーティング用のアクション定義です。
type Action struct {
	Name    string
	Method  string
	Handler gin.HandlerFunc
}

// Actions はコントローラーが公開するアクションの一覧です。
func (ctrl *Controller) Actions() []Action {
	return []Action{
		{Name: "select", Method: http.MethodGet, Handler: ctrl.Select},
		{Name: "first", Method: http.MethodGet, Handler: ctrl.First},
		{Name: "find", Method: http.MethodGet, Handler: ctrl.Find},
		{Name: "insert", Method: http.MethodPost, Handler: ctrl.Insert},
		{Name: "update", Method: http.MethodPost, Handler: ctrl.Update},
		{Name: "delete", Method: http.MethodPost, Handler: ctrl.Delete},
	}
}

// Select は GET /select のハンドラーです。
func (ctrl *Controller) Select(c *gin.Context) {
	ctx := c.Request.Context()

	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	spec, err := Compile(QueryInput(c), table, scope)
	if err != nil {
		ctrl.fail(c, err)
		return
	}

	q := ctrl.query(spec)
	if err := ctrl.beforeQuery(c, &q); err != nil {
		ctrl.fail(c, err)
		return
	}

	rows, total, err := ctrl.store.Paginate(ctx, q, spec.Page, spec.Limit)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if ctrl.after != nil {
		if rows, err = ctrl.after.AfterQuery(c, rows); err != nil {
			ctrl.fail(c, err)
			return
		}
	}

	ctrl.format(c, spec.Format, table, rows, total)
}

// First は GET /first のハンドラーです。並び順と複合条件に対応します。
func (ctrl *Controller) First(c *gin.Context) {
	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	spec, err := Compile(QueryInput(c), table, scope)
	if err != nil {
		ctrl.fail(c, err)
		return
	}

	ctrl.first(c, ctrl.query(spec))
}

// Find は GET /find のハンドラーです。ホワイトリスト内のパラメータを全て等価条件にします。
func (ctrl *Controller) Find(c *gin.Context) {
	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	data, err := FilterPayload(QueryInput(c), table)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if scope != nil {
		data[scope.Field] = scope.UserID
	}

	q := store.Query{Table: ctrl.res.Table}
	for _, column := range sortedKeys(data) {
		q.AddWhere(Clause{Column: column, Op: OpEquals, Value: data[column]}.Sqlizer())
	}
	ctrl.first(c, q)
}

// Insert は POST /insert のハンドラーです。
func (ctrl *Controller) Insert(c *gin.Context) {
	ctx := c.Request.Context()

	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	in, err := PostInput(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	data, err := FilterPayload(in, table)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if pw, ok := data[passwordField].(string); ok {
		if data[passwordField], err = hashPassword(pw); err != nil {
			ctrl.fail(c, err)
			return
		}
	}
	if scope != nil {
		data[scope.Field] = scope.UserID
	}

	id, err := ctrl.store.Insert(ctx, ctrl.res.Table, data, table.PrimaryKey)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	success(c, gin.H{"id": id})
}

// Update は POST /update のハンドラーです。
func (ctrl *Controller) Update(c *gin.Context) {
	ctx := c.Request.Context()

	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	in, err := PostInput(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	id, data, err := ctrl.updateInput(ctx, in, table, scope)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if len(data) > 0 {
		if err := ctrl.store.Update(ctx, ctrl.res.Table, table.PrimaryKey, id, data); err != nil {
			ctrl.fail(c, err)
			return
		}
	}
	success(c, []any{})
}

func (ctrl *Controller) updateInput(ctx context.Context, in Input, table schema.Table, scope *Scope) (any, map[string]any, error) {
	pk := table.PrimaryKey
	if pk == "" {
		return nil, nil, apperr.New(apperr.KindUnsupportedOperation, "table has no primary key, update is not supported")
	}
	id := in.Scalar(pk)
	if id == "" {
		return nil, nil, apperr.New(apperr.KindRecordNotFound, "record not found")
	}

	data, err := FilterPayload(in, table)
	if err != nil {
		return nil, nil, err
	}

	existing, err := ctrl.store.Find(ctx, ctrl.res.Table, pk, id)
	if err != nil {
		return nil, nil, err
	}
	if existing == nil {
		return nil, nil, apperr.New(apperr.KindRecordNotFound, "record not found")
	}

	if scope != nil {
		if !sameValue(existing[scope.Field], scope.OwnerValue()) {
			return nil, nil, apperr.New(apperr.KindPermissionDenied, "no permission for this record")
		}
		if v, ok := data[scope.Field]; ok && !sameValue(v, scope.OwnerValue()) {
			return nil, nil, apperr.New(apperr.KindPermissionDenied, "owner field cannot be changed")
		}
	}

	for _, field := range ctrl.res.ReadOnly {
		v, ok := data[field]
		if !ok {
			continue
		}
		if changed(existing[field], v) {
			return nil, nil, apperr.New(apperr.KindPermissionDenied, fmt.Sprintf("read-only field %s cannot be modified", field))
		}
	}

	if pw, ok := data[passwordField]; ok {
		// 空のパスワードは更新しない
		if s, _ := pw.(string); s == "" {
			delete(data, passwordField)
		} else if data[passwordField], err = hashPassword(s); err != nil {
			return nil, nil, err
		}
	}
	delete(data, pk)
	return id, data, nil
}

// Delete は POST /delete のハンドラーです。
func (ctrl *Controller) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	table, scope, err := ctrl.prepare(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	pk := table.PrimaryKey
	if pk == "" {
		ctrl.fail(c, apperr.New(apperr.KindUnsupportedOperation, "table has no primary key, delete is not supported"))
		return
	}
	in, err := PostInput(c)
	if err != nil {
		ctrl.fail(c, err)
		return
	}

	ids := deleteIDs(in[pk])
	var count int64
	if len(ids) > 0 {
		if scope != nil {
			owners, err := ctrl.store.Pluck(ctx, ctrl.res.Table, scope.Field, pk, ids)
			if err != nil {
				ctrl.fail(c, err)
				return
			}
			for _, owner := range owners {
				if !sameValue(owner, scope.OwnerValue()) {
					ctrl.fail(c, apperr.New(apperr.KindPermissionDenied, "no permission for this record"))
					return
				}
			}
		}
		if count, err = ctrl.store.Destroy(ctx, ctrl.res.Table, pk, ids); err != nil {
			ctrl.fail(c, err)
			return
		}
	}
	success(c, gin.H{"count": count})
}

func deleteIDs(v any) []any {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []any{val}
	case []string:
		ids := make([]any, 0, len(val))
		for _, id := range val {
			if id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	return nil
}

// prepare はテーブル定義を取得し、データ制限が有効な場合は Scope を組み立てます。
func (ctrl *Controller) prepare(c *gin.Context) (schema.Table, *Scope, error) {
	scope, err := ctrl.scope(c)
	if err != nil {
		return schema.Table{}, nil, err
	}
	table, err := ctrl.store.Describe(c.Request.Context(), ctrl.res.Table)
	if err != nil {
		return schema.Table{}, nil, err
	}
	return table, scope, nil
}

func (ctrl *Controller) scope(c *gin.Context) (*Scope, error) {
	policy := ctrl.res.Policy.DataLimit
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if !policy.Enabled {
		return nil, nil
	}
	if ctrl.identity == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "please log in")
	}
	id, ok := ctrl.identity(c)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "please log in")
	}
	return &Scope{Field: policy.Field, UserID: id}, nil
}

func (ctrl *Controller) query(spec SelectSpec) store.Query {
	return store.Query{
		Table:   ctrl.res.Table,
		Where:   spec.Where(),
		OrderBy: spec.OrderBy(),
	}
}

func (ctrl *Controller) beforeQuery(c *gin.Context, q *store.Query) error {
	if ctrl.before == nil {
		return nil
	}
	return ctrl.before.BeforeQuery(c, q)
}

func (ctrl *Controller) first(c *gin.Context, q store.Query) {
	if err := ctrl.beforeQuery(c, &q); err != nil {
		ctrl.fail(c, err)
		return
	}
	row, err := ctrl.store.First(c.Request.Context(), q)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if row == nil {
		ctrl.fail(c, apperr.New(apperr.KindRecordNotFound, "record not found"))
		return
	}
	success(c, row)
}

// fail はエラーを {code:1} の応答に変換します。
func (ctrl *Controller) fail(c *gin.Context, err error) {
	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
		ctrl.logger.Debug().Str("kind", string(appErr.Kind)).Msg(msg)
	} else {
		ctrl.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("crud request failed")
	}
	Fail(c, msg)
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": data})
}

// Fail は {code:1, msg, data:[]} を返します。
func Fail(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"code": 1, "msg": msg, "data": []any{}})
}

func sameValue(v any, want string) bool {
	if v == nil {
		return false
	}
	return fmt.Sprint(v) == want
}

func changed(old, updated any) bool {
	if old == nil || updated == nil {
		return old != updated
	}
	return fmt.Sprint(old) != fmt.Sprint(updated)
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
