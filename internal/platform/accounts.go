package platform

import (
	"context"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/model"
)

// signUp creates the agent's account. Duplicate sign-ups are not detected
// up front; the primary key rejects them.
func (p *Platform) signUp(ctx context.Context, agentID int64, cmd action.SignUp) (action.Result, error) {
	now := p.clock.Now()
	err := p.store.CreateUser(ctx, model.User{
		UserID:    agentID,
		AgentID:   agentID,
		UserName:  cmd.UserName,
		Name:      cmd.Name,
		Bio:       cmd.Bio,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	info := map[string]any{"name": cmd.Name, "user_name": cmd.UserName, "bio": cmd.Bio}
	if err := p.trace(ctx, agentID, now, action.KindSignUp, info); err != nil {
		return nil, err
	}
	return action.OK("user_id", agentID), nil
}

// signUpProduct is platform setup: it is not traced.
func (p *Platform) signUpProduct(ctx context.Context, cmd action.SignUpProduct) (action.Result, error) {
	if err := p.store.CreateProduct(ctx, cmd.ProductID, cmd.ProductName); err != nil {
		return nil, err
	}
	return action.OK("product_id", cmd.ProductID), nil
}

// purchaseProduct adds a positive quantity to the product's sales.
func (p *Platform) purchaseProduct(ctx context.Context, agentID int64, cmd action.PurchaseProduct) (action.Result, error) {
	if cmd.Quantity <= 0 {
		return action.Fail(msgBadQuantity), nil
	}
	now := p.clock.Now()
	product, err := p.store.ProductByName(ctx, cmd.ProductName)
	if ok, err := found(err); err != nil {
		return nil, err
	} else if !ok {
		return action.Fail(msgNoProduct), nil
	}

	if err := p.store.AddSales(ctx, product.ProductID, cmd.Quantity); err != nil {
		return nil, err
	}

	info := map[string]any{"product_name": cmd.ProductName, "purchase_num": cmd.Quantity}
	if err := p.trace(ctx, agentID, now, action.KindPurchaseProduct, info); err != nil {
		return nil, err
	}
	return action.OK("product_id", product.ProductID), nil
}

func (p *Platform) doNothing(ctx context.Context, agentID int64) (action.Result, error) {
	if err := p.trace(ctx, agentID, p.clock.Now(), action.KindDoNothing, map[string]any{}); err != nil {
		return nil, err
	}
	return action.OK(), nil
}
